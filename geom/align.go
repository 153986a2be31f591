package geom

import (
	"math"

	"github.com/pkg/errors"
)

// ErrDegenerate is returned by Kabsch when fewer than 3 point pairs are
// supplied, or when the eigen-solve yields no usable rotation. Collinear
// point sets are not detected; for them Kabsch returns one of the equally
// good rotations.
var ErrDegenerate = errors.New("geom: degenerate point set (fewer than 3 point pairs)")

// Transform is a rigid-body rotation + translation, applied to a point as
// Rot*p + Trans.
type Transform struct {
	Rot   [3][3]float64
	Trans Vec3
}

// Apply maps p through t.
func (t Transform) Apply(p Vec3) Vec3 {
	r := t.Rot
	return Vec3{
		X: r[0][0]*p.X + r[0][1]*p.Y + r[0][2]*p.Z,
		Y: r[1][0]*p.X + r[1][1]*p.Y + r[1][2]*p.Z,
		Z: r[2][0]*p.X + r[2][1]*p.Y + r[2][2]*p.Z,
	}.Add(t.Trans)
}

// Kabsch computes the rigid transform that best maps mobile onto target in
// the least-squares sense (Kearsley's quaternion formulation of the Kabsch
// algorithm), and the RMSD of mobile after that transform is applied.
// len(mobile) must equal len(target) and be >= 3.
func Kabsch(mobile, target []Vec3) (Transform, float64, error) {
	n := len(mobile)
	if n != len(target) {
		return Transform{}, 0, errors.Errorf("geom: mismatched point counts %d vs %d", n, len(target))
	}
	if n < 3 {
		return Transform{}, 0, ErrDegenerate
	}

	var mobileCentroid, targetCentroid Vec3
	for i := 0; i < n; i++ {
		mobileCentroid = mobileCentroid.Add(mobile[i])
		targetCentroid = targetCentroid.Add(target[i])
	}
	inv := 1.0 / float64(n)
	mobileCentroid = mobileCentroid.Scale(inv)
	targetCentroid = targetCentroid.Scale(inv)

	// Cross-covariance matrix R = sum( mobile_c * target_c^T ).
	var r [3][3]float64
	for i := 0; i < n; i++ {
		m := mobile[i].Sub(mobileCentroid)
		t := target[i].Sub(targetCentroid)
		mv := [3]float64{m.X, m.Y, m.Z}
		tv := [3]float64{t.X, t.Y, t.Z}
		for a := 0; a < 3; a++ {
			for b := 0; b < 3; b++ {
				r[a][b] += mv[a] * tv[b]
			}
		}
	}

	q := buildKeyMatrix(r)
	eigvec, ok := largestEigenvector4(q)
	if !ok {
		return Transform{}, 0, ErrDegenerate
	}
	rot := quaternionToRotation(eigvec)

	trans := targetCentroid.Sub(applyRot(rot, mobileCentroid))
	tr := Transform{Rot: rot, Trans: trans}

	var sumSq float64
	for i := 0; i < n; i++ {
		d := SqDist(tr.Apply(mobile[i]), target[i])
		sumSq += d
	}
	rmsd := math.Sqrt(sumSq / float64(n))
	return tr, rmsd, nil
}

func applyRot(rot [3][3]float64, p Vec3) Vec3 {
	return Vec3{
		X: rot[0][0]*p.X + rot[0][1]*p.Y + rot[0][2]*p.Z,
		Y: rot[1][0]*p.X + rot[1][1]*p.Y + rot[1][2]*p.Z,
		Z: rot[2][0]*p.X + rot[2][1]*p.Y + rot[2][2]*p.Z,
	}
}

// buildKeyMatrix assembles the symmetric 4x4 "key matrix" whose largest
// eigenvector is the optimal rotation quaternion (Kearsley 1989).
func buildKeyMatrix(r [3][3]float64) [4][4]float64 {
	var k [4][4]float64
	k[0][0] = r[0][0] + r[1][1] + r[2][2]
	k[0][1] = r[1][2] - r[2][1]
	k[0][2] = r[2][0] - r[0][2]
	k[0][3] = r[0][1] - r[1][0]

	k[1][1] = r[0][0] - r[1][1] - r[2][2]
	k[1][2] = r[0][1] + r[1][0]
	k[1][3] = r[0][2] + r[2][0]

	k[2][2] = -r[0][0] + r[1][1] - r[2][2]
	k[2][3] = r[1][2] + r[2][1]

	k[3][3] = -r[0][0] - r[1][1] + r[2][2]

	for a := 0; a < 4; a++ {
		for b := a + 1; b < 4; b++ {
			k[b][a] = k[a][b]
		}
	}
	return k
}

// largestEigenvector4 returns the (unit-norm) eigenvector associated with the
// largest eigenvalue of the symmetric matrix m, found via cyclic Jacobi
// rotation, stopping after at most 100 sweeps whether or not it has
// converged. Returns ok=false only if the selected eigenvector has
// (near-)zero norm.
func largestEigenvector4(m [4][4]float64) ([4]float64, bool) {
	const n = 4
	a := m
	var v [n][n]float64
	for i := 0; i < n; i++ {
		v[i][i] = 1
	}

	for sweep := 0; sweep < 100; sweep++ {
		off := 0.0
		for p := 0; p < n; p++ {
			for q := p + 1; q < n; q++ {
				off += a[p][q] * a[p][q]
			}
		}
		if off < 1e-20 {
			break
		}
		for p := 0; p < n; p++ {
			for q := p + 1; q < n; q++ {
				if math.Abs(a[p][q]) < 1e-18 {
					continue
				}
				theta := (a[q][q] - a[p][p]) / (2 * a[p][q])
				t := math.Copysign(1, theta) / (math.Abs(theta) + math.Sqrt(1+theta*theta))
				c := 1 / math.Sqrt(1+t*t)
				s := t * c
				app, aqq, apq := a[p][p], a[q][q], a[p][q]
				a[p][p] = c*c*app - 2*s*c*apq + s*s*aqq
				a[q][q] = s*s*app + 2*s*c*apq + c*c*aqq
				a[p][q] = 0
				a[q][p] = 0
				for i := 0; i < n; i++ {
					if i != p && i != q {
						aip, aiq := a[i][p], a[i][q]
						a[i][p] = c*aip - s*aiq
						a[p][i] = a[i][p]
						a[i][q] = s*aip + c*aiq
						a[q][i] = a[i][q]
					}
					vip, viq := v[i][p], v[i][q]
					v[i][p] = c*vip - s*viq
					v[i][q] = s*vip + c*viq
				}
			}
		}
	}

	best := 0
	for i := 1; i < n; i++ {
		if a[i][i] > a[best][best] {
			best = i
		}
	}
	var out [4]float64
	norm := 0.0
	for i := 0; i < n; i++ {
		out[i] = v[i][best]
		norm += out[i] * out[i]
	}
	if norm < 1e-20 {
		return out, false
	}
	norm = math.Sqrt(norm)
	for i := range out {
		out[i] /= norm
	}
	return out, true
}

func quaternionToRotation(q [4]float64) [3][3]float64 {
	w, x, y, z := q[0], q[1], q[2], q[3]
	return [3][3]float64{
		{1 - 2*(y*y+z*z), 2 * (x*y - w*z), 2 * (x*z + w*y)},
		{2 * (x*y + w*z), 1 - 2*(x*x+z*z), 2 * (y*z - w*x)},
		{2 * (x*z - w*y), 2 * (y*z + w*x), 1 - 2*(x*x+y*y)},
	}
}

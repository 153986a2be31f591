package pdbio

import (
	"context"
	"io/ioutil"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/klauspost/compress/gzip"
)

// ReadFile loads a PDB blob from path, which may be local or a
// grailbio/base/file-supported remote URL, transparently decompressing a
// ".pdb.gz"/".gz" suffix.
func ReadFile(ctx context.Context, path string) (blob []byte, err error) {
	f, ferr := file.Open(ctx, path)
	if ferr != nil {
		return nil, errors.E(ferr, "pdbio.ReadFile: open")
	}
	e := errors.Once{}
	// Registered before the Close defer so it runs last, after Close has
	// had a chance to e.Set its own error: a named return lets a Close
	// failure reach the caller instead of being silently dropped.
	defer func() { err = e.Err() }()
	defer func() { e.Set(f.Close(ctx)) }()

	r := f.Reader(ctx)
	if strings.HasSuffix(path, ".gz") {
		gz, gzErr := gzip.NewReader(r)
		if gzErr != nil {
			e.Set(errors.E(gzErr, "pdbio.ReadFile: gzip"))
			return
		}
		defer gz.Close()
		r = gz
	}

	b, readErr := ioutil.ReadAll(r)
	if readErr != nil {
		e.Set(errors.E(readErr, "pdbio.ReadFile: read"))
		return
	}
	blob = b
	return
}

// WriteFile writes blob to path, gzip-compressing when path ends in ".gz".
func WriteFile(ctx context.Context, path string, blob []byte) (err error) {
	f, ferr := file.Create(ctx, path)
	if ferr != nil {
		return errors.E(ferr, "pdbio.WriteFile: create")
	}
	e := errors.Once{}
	defer func() { err = e.Err() }()
	defer func() { e.Set(f.Close(ctx)) }()

	w := f.Writer(ctx)
	if strings.HasSuffix(path, ".gz") {
		gz := gzip.NewWriter(w)
		if _, werr := gz.Write(blob); werr != nil {
			e.Set(errors.E(werr, "pdbio.WriteFile: gzip write"))
			return
		}
		if cerr := gz.Close(); cerr != nil {
			e.Set(errors.E(cerr, "pdbio.WriteFile: gzip close"))
			return
		}
	} else if _, werr := w.Write(blob); werr != nil {
		e.Set(errors.E(werr, "pdbio.WriteFile: write"))
		return
	}

	return
}

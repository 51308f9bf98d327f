package mig

import (
	"archive/zip"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// Dataset consists of a manifest and one or more data streams of schema types.
// The schema version of the data is the version of the first manifest entry.
type Dataset struct {
	Manifest Manifest
	Streams  []Stream
	Closer   io.Closer
}

// Close calls the closer, if configured, and should always be called.
func (d *Dataset) Close() error {
	if d.Closer != nil {
		return d.Closer.Close()
	}
	return nil
}

// Vers returns the schema version of the dataset.
func (d *Dataset) Vers() int64 { return d.Manifest.First().Vers }

// ReadDataset returns a dataset with the manifest and data streams found at path or an error.
//
// Path must either point to directory or a zip file containing individual files for the manifest
// and data steams. The manifest file must be named 'manifest.json' and the individual data streams
// use the type name with an extension for the format, that is either '.json' or '.yaml' with an
// optional '.gz', for gzipped files. The returned data streams are first read when iterated.
func ReadDataset(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read data at path %q", path)
	}
	if strings.HasSuffix(path, ".zip") {
		return zipData(f, path)
	}
	return dirData(f, path)
}

// StreamWriter creates the output for the stream of the named type with the given file name.
type StreamWriter interface {
	Create(name string) (io.Writer, error)
}

// WriteDataset writes the manifest and the values produced by each call to fn into path. If the
// path ends in '.zip' a zip file is written, otherwise the dataset is written as individual
// gzipped files to the directory at path.
func WriteDataset(path string, mf Manifest, fn func(StreamWriter) error) error {
	if strings.HasSuffix(path, ".zip") {
		return writeFile(path, func(f io.Writer) error {
			z := zip.NewWriter(f)
			err := writeDataset(zipWriter{z}, mf, fn)
			if cerr := z.Close(); err == nil {
				err = cerr
			}
			return err
		})
	}
	if err := os.MkdirAll(path, 0755); err != nil {
		return err
	}
	dw := &dirWriter{path: path}
	err := writeDataset(dw, mf, fn)
	if cerr := dw.Close(); err == nil {
		err = cerr
	}
	return err
}

func writeDataset(w StreamWriter, mf Manifest, fn func(StreamWriter) error) error {
	mw, err := w.Create("manifest.json")
	if err != nil {
		return err
	}
	if _, err = mf.WriteTo(mw); err != nil {
		return err
	}
	return fn(w)
}

type zipWriter struct{ z *zip.Writer }

func (w zipWriter) Create(name string) (io.Writer, error) { return w.z.Create(name) }

// dirWriter writes gzipped files into a directory. Files are closed with the writer or when the
// next file is created.
type dirWriter struct {
	path string
	f    *os.File
	gz   *gzip.Writer
}

func (w *dirWriter) Create(name string) (io.Writer, error) {
	if err := w.Close(); err != nil {
		return nil, err
	}
	f, err := os.Create(filepath.Join(w.path, fmt.Sprintf("%s.gz", name)))
	if err != nil {
		return nil, err
	}
	w.f = f
	if w.gz == nil {
		w.gz = gzip.NewWriter(f)
	} else {
		w.gz.Reset(f)
	}
	return w.gz, nil
}

func (w *dirWriter) Close() error {
	if w.f == nil {
		return nil
	}
	err := w.gz.Close()
	if cerr := w.f.Close(); err == nil {
		err = cerr
	}
	w.f = nil
	return err
}

// ReadZip returns a dataset read from the given zip reader as described in ReadDataset or an error.
// It is the caller's responsibility to close a zip read closer or any underlying reader.
func ReadZip(r *zip.Reader) (*Dataset, error) {
	var files []fileStream
	for _, f := range r.File {
		if !f.FileInfo().IsDir() {
			files = append(files, &ZipStream{NewFileStream(f.Name), f})
		}
	}
	return collect(files)
}

// fileStream is a stream that also exposes its file name details.
type fileStream interface {
	Stream
	fileOpener
	typeName() string
}

func (s *FileStream) typeName() string { return s.Type }

// collect separates the manifest from the data streams and sorts the streams by type name.
func collect(files []fileStream) (*Dataset, error) {
	var d Dataset
	found := false
	for _, s := range files {
		if s.typeName() != "manifest" {
			d.Streams = append(d.Streams, s)
			continue
		}
		if found {
			return nil, errors.New("dataset with multiple manifests")
		}
		mf, err := readManifestStream(s)
		if err != nil {
			return nil, errors.Wrap(err, "read dataset manifest")
		}
		d.Manifest, found = mf, true
	}
	if !found {
		return nil, errors.New("dataset without manifest")
	}
	sort.Slice(d.Streams, func(i, j int) bool { return d.Streams[i].Name() < d.Streams[j].Name() })
	return &d, nil
}

func dirData(f *os.File, path string) (*Dataset, error) {
	defer f.Close()
	ents, err := f.ReadDir(0)
	if err != nil {
		return nil, errors.Wrapf(err, "read data dir at path %q", path)
	}
	files := make([]fileStream, 0, len(ents))
	for _, e := range ents {
		if !e.IsDir() {
			s := NewFileStream(filepath.Join(path, e.Name()))
			files = append(files, &s)
		}
	}
	return collect(files)
}

func readManifestStream(s fileOpener) (Manifest, error) {
	r, err := s.open()
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return ReadManifest(r)
}

func zipData(f *os.File, path string) (d *Dataset, err error) {
	defer func() {
		if err != nil {
			f.Close()
		}
	}()
	fi, err := f.Stat()
	if err != nil {
		return nil, errors.Wrapf(err, "stat zip data at path %q", path)
	}
	r, err := zip.NewReader(f, fi.Size())
	if err != nil {
		return nil, errors.Wrapf(err, "read zip data at path %q", path)
	}
	if d, err = ReadZip(r); err != nil {
		return nil, errors.Wrapf(err, "zip data at path %q", path)
	}
	d.Closer = f
	return d, nil
}

func writeFile(path string, wf func(io.Writer) error) error {
	err := os.MkdirAll(filepath.Dir(path), 0755)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	err = wf(f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return err
}

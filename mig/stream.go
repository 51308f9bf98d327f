package mig

import (
	"archive/zip"
	"compress/gzip"
	"encoding/json"
	"io"
	"os"
	"strings"

	"github.com/mb0/dafix/tree"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Stream represents a possibly large sequence of serialized values of one type.
//
// This abstraction allows us to choose an appropriate implementation for any situation, without
// being forced to load all the data into memory at once.
type Stream interface {
	Name() string   // name of a schema type
	Format() string // value format either json or yaml
	Iter() (Iter, error)
}

// Iter iterates the values of a stream. Scan returns io.EOF after the last value.
type Iter interface {
	Scan() (interface{}, error)
	Close() error
}

// Encoder writes values to a stream. Close flushes buffered output but does not close the writer.
type Encoder interface {
	Encode(v interface{}) error
	Close() error
}

type jsonEncoder struct{ *json.Encoder }

func (jsonEncoder) Close() error { return nil }

// Ops returns the tree adapter for values of format.
func Ops(format string) (tree.Ops, error) {
	switch format {
	case "json":
		return tree.Native, nil
	case "yaml", "yml":
		return tree.YAML, nil
	}
	return nil, errors.Errorf("unknown stream format %q", format)
}

// NewEncoder returns an encoder writing values of format to w.
func NewEncoder(format string, w io.Writer) (Encoder, error) {
	switch format {
	case "json":
		return jsonEncoder{json.NewEncoder(w)}, nil
	case "yaml", "yml":
		return yaml.NewEncoder(w), nil
	}
	return nil, errors.Errorf("unknown stream format %q", format)
}

// NewIter returns an iterator decoding values of format from r.
func NewIter(format string, r io.ReadCloser) (Iter, error) {
	switch format {
	case "json":
		return &jsonIter{json.NewDecoder(r), r}, nil
	case "yaml", "yml":
		return &yamlIter{yaml.NewDecoder(r), r}, nil
	}
	r.Close()
	return nil, errors.Errorf("unknown stream format %q", format)
}

type jsonIter struct {
	dec *json.Decoder
	io.Closer
}

func (it *jsonIter) Scan() (v interface{}, err error) {
	err = it.dec.Decode(&v)
	return v, err
}

type yamlIter struct {
	dec *yaml.Decoder
	io.Closer
}

func (it *yamlIter) Scan() (interface{}, error) {
	var n yaml.Node
	if err := it.dec.Decode(&n); err != nil {
		return nil, err
	}
	return &n, nil
}

// FileStream is a file based stream implementation.
type FileStream struct {
	Type string
	Fmt  string
	Gzip bool
	Path string
}

// NewFileStream returns a stream for the file at path. The file name is the type name with an
// extension for the format and an optional '.gz' for gzipped files.
func NewFileStream(path string) FileStream {
	name := path
	idx := strings.LastIndexByte(name, '/')
	if idx >= 0 {
		name = name[idx+1:]
	}
	gz := strings.HasSuffix(name, ".gz")
	if gz {
		name = name[:len(name)-3]
	}
	var ext string
	idx = strings.LastIndexByte(name, '.')
	if idx > 0 {
		name, ext = name[:idx], name[idx+1:]
	}
	return FileStream{name, ext, gz, path}
}

func (s *FileStream) Name() string   { return s.Type }
func (s *FileStream) Format() string { return s.Fmt }
func (s *FileStream) Iter() (Iter, error) {
	r, err := s.open()
	if err != nil {
		return nil, err
	}
	return NewIter(s.Fmt, r)
}

func (s *FileStream) open() (io.ReadCloser, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, err
	}
	return s.gunzip(f)
}

// ZipStream is a zip file based stream implementation.
type ZipStream struct {
	FileStream
	*zip.File
}

func (s *ZipStream) Iter() (Iter, error) {
	r, err := s.open()
	if err != nil {
		return nil, err
	}
	return NewIter(s.Fmt, r)
}

func (s *ZipStream) open() (io.ReadCloser, error) {
	f, err := s.File.Open()
	if err != nil {
		return nil, err
	}
	return s.gunzip(f)
}

// fileOpener opens the raw content of a file stream.
type fileOpener interface {
	open() (io.ReadCloser, error)
}

// gzipCloser closes the gzip reader and the underlying file.
type gzipCloser struct {
	*gzip.Reader
	f io.Closer
}

func (c gzipCloser) Close() error {
	c.Reader.Close()
	return c.f.Close()
}

func (s *FileStream) gunzip(f io.ReadCloser) (io.ReadCloser, error) {
	if !s.Gzip {
		return f, nil
	}
	gz, err := gzip.NewReader(f)
	if err != nil {
		f.Close()
		return nil, errors.Wrapf(err, "gzip stream %s", s.Path)
	}
	return gzipCloser{gz, f}, nil
}

// WriteIter encodes all values of it with enc and closes the iterator.
func WriteIter(it Iter, enc Encoder) error {
	defer it.Close()
	for {
		v, err := it.Scan()
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
		if err = enc.Encode(v); err != nil {
			return err
		}
	}
}

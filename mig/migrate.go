package mig

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"runtime"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/mb0/dafix/log"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// MigrateStream converts all values of stream s from version from to version to and writes them
// to enc. It returns the number of written values. Values that fail to convert are skipped and
// reported in the returned multierror, other errors abort the migration.
func MigrateStream(ctx context.Context, l log.Logger, h *History, s Stream, from, to int64,
	enc Encoder) (n int, err error) {
	ops, err := Ops(s.Format())
	if err != nil {
		return 0, err
	}
	res, err := h.Rewrite(s.Name(), from, to)
	if err != nil {
		return 0, err
	}
	it, err := s.Iter()
	if err != nil {
		return 0, errors.Wrapf(err, "open stream %s", s.Name())
	}
	defer it.Close()
	l = l.With("type", s.Name(), "from", from, "to", to)
	var errs *multierror.Error
	skipped := 0
	for i := 0; ; i++ {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		v, err := it.Scan()
		if err != nil {
			if err == io.EOF {
				break
			}
			return n, errors.Wrapf(err, "read %s record %d", s.Name(), i)
		}
		out, err := res.Convert(ops, v)
		if err != nil {
			l.Error("skip record", "record", i, "err", err)
			errs = multierror.Append(errs, errors.Wrapf(err, "%s record %d", s.Name(), i))
			skipped++
			continue
		}
		if err = enc.Encode(out); err != nil {
			return n, errors.Wrapf(err, "write %s record %d", s.Name(), i)
		}
		n++
	}
	if err = enc.Close(); err != nil {
		return n, err
	}
	l.Debug("migrated stream", "records", n, "skipped", skipped)
	return n, errs.ErrorOrNil()
}

// MigrateDataset migrates all streams of dataset d to version to and writes the result with an
// updated manifest to path. The dataset manifest must match the history schema of its version.
// Streams are migrated concurrently. Skipped values are reported in the returned multierror after
// the dataset was written.
func MigrateDataset(ctx context.Context, l log.Logger, h *History, d *Dataset, to int64,
	path string) error {
	from := d.Vers()
	src, err := h.Schema(from)
	if err != nil {
		return err
	}
	if err = d.Manifest.Check(src); err != nil {
		return errors.Wrapf(err, "dataset manifest")
	}
	dst, err := h.Schema(to)
	if err != nil {
		return err
	}
	bufs := make([]bytes.Buffer, len(d.Streams))
	skipped := make([]error, len(d.Streams))
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(runtime.GOMAXPROCS(0))
	for i, s := range d.Streams {
		i, s := i, s
		eg.Go(func() error {
			enc, err := NewEncoder(s.Format(), &bufs[i])
			if err != nil {
				return err
			}
			_, err = MigrateStream(ctx, l, h, s, from, to, enc)
			if merr, ok := err.(*multierror.Error); ok {
				skipped[i] = merr
				return nil
			}
			return err
		})
	}
	if err = eg.Wait(); err != nil {
		return err
	}
	mf := d.Manifest.Update(dst, time.Now().UTC())
	err = WriteDataset(path, mf, func(w StreamWriter) error {
		for i, s := range d.Streams {
			out, err := w.Create(fmt.Sprintf("%s.%s", s.Name(), s.Format()))
			if err != nil {
				return err
			}
			if _, err = bufs[i].WriteTo(out); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	l.Debug("migrated dataset", "path", path, "from", from, "to", to, "streams", len(d.Streams))
	return multierror.Append(nil, skipped...).ErrorOrNil()
}

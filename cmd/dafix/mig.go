package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/mb0/dafix/log"
	"github.com/mb0/dafix/mig"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

const datefmt = "2006-01-02 15:04"

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check and display the recorded manifest for the latest schema",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := history(cmd.Context())
		if err != nil {
			return err
		}
		mf, err := manifest()
		if err != nil {
			return err
		}
		last := h.Last()
		rec := mf.First()
		var vers string
		if rec.Vers == 0 {
			vers = fmt.Sprintf("v%d (unrecorded)", last.Vers)
		} else if rec.Vers != last.Vers {
			vers = fmt.Sprintf("v%d (last recorded v%d %s)", last.Vers, rec.Vers,
				rec.Date.Format(datefmt))
		} else {
			vers = fmt.Sprintf("v%d (recorded %s)", rec.Vers, rec.Date.Format(datefmt))
		}
		fmt.Printf("Project: %s %s\n", last.Project, vers)
		cur := mf.Update(last, time.Time{})
		fmt.Printf("Definition:\n")
		const nodefmt = "       %c %s v%d\n"
		for _, name := range last.Names {
			v, _ := cur.Get(last.Qualified(name))
			old, ok := mf.Get(v.Name)
			c := ' '
			if !ok {
				c = '+'
			} else if old.Hash != v.Hash {
				c = '~'
			}
			fmt.Printf(nodefmt, c, v.Name, v.Vers)
		}
		fmt.Println()
		return mf.Check(last)
	},
}

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Write the latest schema versions to the manifest",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := history(cmd.Context())
		if err != nil {
			return err
		}
		mf, err := manifest()
		if err != nil {
			return err
		}
		last := h.Last()
		if err = mf.Check(last); err != nil {
			return err
		}
		res := mf.Update(last, time.Now().UTC())
		if res.First().Hash == mf.First().Hash {
			fmt.Printf("%s v%d unchanged\n", last.Project, last.Vers)
			return nil
		}
		f, err := os.Create(manifestPath())
		if err != nil {
			return err
		}
		defer f.Close()
		if _, err = res.WriteTo(f); err != nil {
			return err
		}
		fmt.Printf("%s v%d recorded\n", last.Project, last.Vers)
		return nil
	},
}

type showOpts struct {
	from, to int64
}

var showOpt showOpts

var showCmd = &cobra.Command{
	Use:   "show [type...]",
	Short: "Print type definitions or the migration of types between versions",
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := history(cmd.Context())
		if err != nil {
			return err
		}
		to := showOpt.to
		if to == 0 {
			to = h.Last().Vers
		}
		s, err := h.Schema(to)
		if err != nil {
			return err
		}
		if len(args) == 0 {
			args = s.Names
		}
		for _, name := range args {
			if showOpt.from == 0 {
				i, ok := s.Index(name)
				if !ok {
					return errors.Wrapf(mig.ErrUnknownType, "%s in %s", name, s)
				}
				fmt.Printf("%s = %s\n", s.Qualified(name), s.Family.Unfold(i))
				continue
			}
			res, err := h.Rewrite(name, showOpt.from, to)
			if err != nil {
				return err
			}
			fmt.Printf("%s v%d to v%d: %s\n", s.Qualified(name), showOpt.from, to, res)
		}
		return nil
	},
}

type convertOpts struct {
	typ      string
	format   string
	from, to int64
}

var convertOpt convertOpts

var convertCmd = &cobra.Command{
	Use:   "convert [file]",
	Short: "Migrate a stream of values of one type from a file or stdin to stdout",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := history(cmd.Context())
		if err != nil {
			return err
		}
		from, to := versionRange(h, convertOpt.from, convertOpt.to)
		var s mig.Stream
		if len(args) == 0 {
			s = &stdinStream{convertOpt.typ, convertOpt.format}
		} else {
			fs := mig.NewFileStream(args[0])
			if convertOpt.typ != "" {
				fs.Type = convertOpt.typ
			}
			s = &fs
		}
		enc, err := mig.NewEncoder(s.Format(), os.Stdout)
		if err != nil {
			return err
		}
		n, err := mig.MigrateStream(cmd.Context(), log.Root, h, s, from, to, enc)
		log.Root.Debug("converted", "type", s.Name(), "records", n)
		return err
	},
}

// versionRange returns from and to with zero values replaced by the first and last version of h.
func versionRange(h *mig.History, from, to int64) (int64, int64) {
	if from == 0 {
		from = h.First().Vers
	}
	if to == 0 {
		to = h.Last().Vers
	}
	return from, to
}

// stdinStream is a stream that can be iterated once.
type stdinStream struct {
	typ, format string
}

func (s *stdinStream) Name() string   { return s.typ }
func (s *stdinStream) Format() string { return s.format }
func (s *stdinStream) Iter() (mig.Iter, error) {
	return mig.NewIter(s.format, io.NopCloser(os.Stdin))
}

type migrateOpts struct {
	to int64
}

var migrateOpt migrateOpts

var migrateCmd = &cobra.Command{
	Use:     "migrate <src> <dst>",
	Short:   "Migrate a dataset and write it to a path",
	Args:    cobra.ExactArgs(2),
	Example: `dafix -c shop/catalog.yaml migrate backup.zip migrated.zip`,
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := history(cmd.Context())
		if err != nil {
			return err
		}
		to := migrateOpt.to
		if to == 0 {
			to = h.Last().Vers
		}
		d, err := mig.ReadDataset(args[0])
		if err != nil {
			return err
		}
		defer d.Close()
		err = mig.MigrateDataset(cmd.Context(), log.Root, h, d, to, args[1])
		if err != nil {
			return err
		}
		fmt.Printf("%s migrated from v%d to v%d\n", args[1], d.Vers(), to)
		return nil
	},
}

func init() {
	f := showCmd.Flags()
	f.Int64Var(&showOpt.from, "from", 0, "show the migration from this version")
	f.Int64Var(&showOpt.to, "to", 0, "target version (default is the latest)")

	f = convertCmd.Flags()
	f.StringVarP(&convertOpt.typ, "type", "t", "", "type name (default is the file name)")
	f.StringVarP(&convertOpt.format, "format", "f", "json", "stdin format json or yaml")
	f.Int64Var(&convertOpt.from, "from", 0, "version of the input, defaults to the first version")
	f.Int64Var(&convertOpt.to, "to", 0, "target version (default is the latest)")

	f = migrateCmd.Flags()
	f.Int64Var(&migrateOpt.to, "to", 0, "target version (default is the latest)")
}

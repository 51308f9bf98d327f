// Command dafix records schema versions and migrates data with the fixes of a rule catalogue.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/mb0/dafix/log"
	"github.com/mb0/dafix/mig"
	"github.com/spf13/cobra"
)

type rootOpts struct {
	catalog  string
	manifest string
	verbose  bool
}

var rootOpt rootOpts

var rootCmd = &cobra.Command{
	Use:   "dafix",
	Short: "Record schema versions and migrate data with a rule catalogue",
	Long: `dafix reads a YAML rule catalogue with the schema versions of a project and the fixes
between them. It records the latest schema in a manifest, reports schema drift and migrates
datasets and record streams to newer versions.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		l, err := log.New(rootOpt.verbose)
		if err != nil {
			return err
		}
		log.Root = l
		return nil
	},
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func init() {
	f := rootCmd.PersistentFlags()
	f.StringVarP(&rootOpt.catalog, "catalog", "c", "catalog.yaml", "rule catalogue file path")
	f.StringVarP(&rootOpt.manifest, "manifest", "m", "",
		"manifest file path (default is manifest.json next to the catalogue)")
	f.BoolVarP(&rootOpt.verbose, "verbose", "v", false, "log debug messages")
	rootCmd.AddCommand(statusCmd, recordCmd, showCmd, convertCmd, migrateCmd)
}

// history resolves the catalogue and returns its schema history.
func history(ctx context.Context) (*mig.History, error) {
	c, err := mig.ResolveCatalog(rootOpt.catalog)
	if err != nil {
		return nil, err
	}
	h, err := c.History(ctx)
	if err != nil {
		return nil, err
	}
	log.Root.Debug("loaded catalogue", "path", rootOpt.catalog, "project", c.Project,
		"vers", h.Last().Vers, "fixes", len(c.Fixes))
	return h, nil
}

func manifestPath() string {
	if rootOpt.manifest != "" {
		return rootOpt.manifest
	}
	return filepath.Join(filepath.Dir(rootOpt.catalog), "manifest.json")
}

// manifest returns the recorded manifest or nil if there is none.
func manifest() (mig.Manifest, error) {
	f, err := os.Open(manifestPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()
	return mig.ReadManifest(f)
}

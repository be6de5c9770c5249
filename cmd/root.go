// Package cmd is the command-line interface of the geometry pipeline.
package cmd

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/leafpore/plugmesh/pipeline"
)

var (
	configFile string
	outputDir  string
	logFile    string
)

var rootCmd = &cobra.Command{
	Use:   "plugmesh",
	Short: "Synthetic porous-plug geometry pipeline",
	Long: `plugmesh generates synthetic porous-plug geometries, extracts and
validates their surface meshes, carves the residual airspace and produces
adaptively sized tetrahedral meshes for downstream simulation.`,
	SilenceUsage: true,
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "project configuration file")
	rootCmd.PersistentFlags().StringVarP(&outputDir, "output", "o", "", "output directory root")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "append run logs to this file")
}

// newRunner resolves configuration and flags into a pipeline runner.
// The caller must invoke the returned cleanup when done.
func newRunner(cmd *cobra.Command) (*pipeline.Runner, func(), error) {
	cfg, err := LoadConfig(configFile)
	if err != nil {
		return nil, nil, err
	}
	if outputDir != "" {
		cfg.Output = outputDir
	}
	if logFile != "" {
		cfg.LogFile = logFile
	}

	sink := io.Writer(cmd.ErrOrStderr())
	cleanup := func() {}
	if cfg.LogFile != "" {
		fp, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		sink = io.MultiWriter(sink, fp)
		cleanup = func() { fp.Close() }
	}
	runner := &pipeline.Runner{
		Layout:    pipeline.Layout{Root: cfg.Output},
		Params:    cfg.Pipeline,
		Converter: cfg.Converter,
		Logger:    log.New(sink, "plugmesh ", log.LstdFlags),
	}
	return runner, cleanup, nil
}

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leafpore/plugmesh/pipeline"
	"github.com/leafpore/plugmesh/viz"
)

var synthesizeCmd = &cobra.Command{
	Use:   "synthesize <sample-id>...",
	Short: "Synthesize voxel grids by constrained sphere packing",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		runner, cleanup, err := newRunner(cmd)
		if err != nil {
			return err
		}
		defer cleanup()
		for _, id := range args {
			if _, err := runner.Synthesize(id); err != nil {
				return err
			}
		}
		return nil
	},
}

var triangulateCmd = &cobra.Command{
	Use:   "triangulate <sample-id>...",
	Short: "Extract and validate surface meshes from voxel grids",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		runner, cleanup, err := newRunner(cmd)
		if err != nil {
			return err
		}
		defer cleanup()
		for _, id := range args {
			report, err := runner.Triangulate(id)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", id, report.Status)
		}
		return nil
	},
}

var convertCmd = &cobra.Command{
	Use:   "convert <sample-id>...",
	Short: "Run the external surface-to-solid converter",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		runner, cleanup, err := newRunner(cmd)
		if err != nil {
			return err
		}
		defer cleanup()
		for _, id := range args {
			if err := runner.Convert(cmd.Context(), id); err != nil {
				return err
			}
		}
		return nil
	},
}

var meshCmd = &cobra.Command{
	Use:   "mesh <sample-id>...",
	Short: "Carve the airspace and generate the tetrahedral mesh",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		runner, cleanup, err := newRunner(cmd)
		if err != nil {
			return err
		}
		defer cleanup()
		for _, id := range args {
			if err := runner.Mesh(id); err != nil {
				return err
			}
		}
		return nil
	},
}

var visualizeCmd = &cobra.Command{
	Use:   "visualize <sample-id>...",
	Short: "Render surface mesh snapshots to PNG",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		runner, cleanup, err := newRunner(cmd)
		if err != nil {
			return err
		}
		defer cleanup()
		for _, id := range args {
			if err := runner.Visualize(id, viz.DefaultOptions()); err != nil {
				return err
			}
		}
		return nil
	},
}

var (
	batchSamplesFile string
	batchWorkers     int
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Run the full pipeline for a file of sample ids across workers",
	RunE: func(cmd *cobra.Command, args []string) error {
		runner, cleanup, err := newRunner(cmd)
		if err != nil {
			return err
		}
		defer cleanup()
		ids, err := pipeline.ReadSampleIDs(batchSamplesFile)
		if err != nil {
			return err
		}
		workers := batchWorkers
		if workers == 0 {
			cfg, err := LoadConfig(configFile)
			if err != nil {
				return err
			}
			workers = cfg.Workers
		}
		results := runner.RunBatch(cmd.Context(), ids, workers)
		failed := 0
		for _, res := range results {
			if res.Err != nil {
				failed++
				fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", res.SampleID, res.Err)
			}
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d samples, %d failed\n", len(results), failed)
		if failed > 0 {
			return fmt.Errorf("batch: %d of %d samples failed", failed, len(results))
		}
		return nil
	},
}

func init() {
	batchCmd.Flags().StringVar(&batchSamplesFile, "samples", "", "file listing sample ids")
	batchCmd.Flags().IntVar(&batchWorkers, "workers", 0, "worker count (0: from config)")
	batchCmd.MarkFlagRequired("samples")
	rootCmd.AddCommand(synthesizeCmd, triangulateCmd, convertCmd, meshCmd, visualizeCmd, batchCmd)
}

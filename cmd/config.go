package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ghodss/yaml"
	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/leafpore/plugmesh/geom"
	"github.com/leafpore/plugmesh/pipeline"
	"github.com/leafpore/plugmesh/tetmesh"
	"github.com/leafpore/plugmesh/trimesh"
	"github.com/leafpore/plugmesh/voxel"
)

// Config is the full configuration surface of the tool. Values resolve
// in layers: built-in defaults, then the user file
// ~/.plugmesh/config.yaml, then the project file given with --config,
// then explicit CLI flags.
type Config struct {
	Output    string             `json:"output"`
	Workers   int                `json:"workers"`
	LogFile   string             `json:"log_file,omitempty"`
	Converter pipeline.Converter `json:"converter"`
	Pipeline  pipeline.Params    `json:"pipeline"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Output:  "output",
		Workers: 1,
		Pipeline: pipeline.Params{
			BaseSeed:     123456,
			SampleDigits: 5,
			Voxel: voxel.Params{
				AxialResolution: 64,
				PlugAspect:      0.30,
				NumCells:        100,
				MinRadius:       0.05,
				MaxRadius:       0.15,
				MinSeparation:   0.01,
				MaxAttempts:     1000,
			},
			Surface: trimesh.Options{
				SmoothingIterations: 15,
				DecimationTarget:    10000,
				ShrinkageTolerance:  0.10,
			},
			Resolution:  64,
			Carve:       geom.CarveOptions{BoundaryMargin: 0.05, CavityMargin: 0.15},
			ClassifyTol: 0.01,
			Field: tetmesh.FieldOptions{
				LcMin:       0.02,
				LcMax:       0.2,
				DistMin:     0.05,
				DistMax:     0.2,
				InletFactor: 2.0,
			},
		},
	}
}

// userConfigPath locates the per-user config file.
func userConfigPath() (string, error) {
	home, err := homedir.Dir()
	if err != nil {
		return "", fmt.Errorf("locate home directory: %w", err)
	}
	return filepath.Join(home, ".plugmesh", "config.yaml"), nil
}

// LoadConfig resolves the layered configuration. projectFile may be
// empty; a missing user file is not an error, a missing project file is.
func LoadConfig(projectFile string) (*Config, error) {
	cfg := DefaultConfig()
	v := viper.New()
	v.SetConfigType("yaml")

	if userFile, err := userConfigPath(); err == nil {
		if _, err := os.Stat(userFile); err == nil {
			v.SetConfigFile(userFile)
			if err := v.MergeInConfig(); err != nil {
				return nil, fmt.Errorf("user config %q: %w", userFile, err)
			}
		}
	}
	if projectFile != "" {
		v.SetConfigFile(projectFile)
		if err := v.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("project config %q: %w", projectFile, err)
		}
	}
	if settings := v.AllSettings(); len(settings) > 0 {
		raw, err := yaml.Marshal(settings)
		if err != nil {
			return nil, fmt.Errorf("merge config layers: %w", err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}
	return cfg, nil
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect or initialize the tool configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the resolved configuration as YAML",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := LoadConfig(configFile)
		if err != nil {
			return err
		}
		raw, err := yaml.Marshal(cfg)
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(raw)
		return err
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default configuration to the user config file",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configFile
		if path == "" {
			var err error
			if path, err = userConfigPath(); err != nil {
				return err
			}
		}
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config init: %q already exists", path)
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return err
		}
		raw, err := yaml.Marshal(DefaultConfig())
		if err != nil {
			return err
		}
		if err := os.WriteFile(path, raw, 0o644); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd, configInitCmd)
	rootCmd.AddCommand(configCmd)
}

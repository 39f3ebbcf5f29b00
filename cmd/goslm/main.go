package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/philipparndt/goslm/internal/config"
	"github.com/philipparndt/goslm/internal/logger"
	"github.com/philipparndt/goslm/version"
)

var (
	configPath string
	logLevel   string
	logFile    string

	// cfg is loaded before every command runs
	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "goslm",
	Short: "Slice STL parts into scan vectors for powder-bed fusion",
	Long: `goslm slices a solid STL mesh into layers, generates contour and hatch
scan vectors for every layer and derives support structures for overhanging
regions. Layers are written as JSON together with their build styles.`,
	Version:           version.GetFullVersion(),
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(*cobra.Command, []string) {
		logger.Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file (default: ./goslm.yaml or the user config directory)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Write JSON logs to this file with rotation")
}

// setup loads the configuration and starts logging. Flags override the file.
func setup(cmd *cobra.Command, _ []string) error {
	var err error
	cfg, err = config.Load(configPath)
	if err != nil {
		return err
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if logFile != "" {
		cfg.Logging.File.Path = logFile
	}
	return logger.InitWithFileConfig(cfg.Logging.Level, cfg.Logging.File, true)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

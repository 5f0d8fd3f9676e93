// Package cmd implements the markd command-line interface using Cobra.
//
// The CLI provides commands for serving markdown files with live
// preview, exporting them to static HTML, and inspecting build
// information. Configuration flows through Viper from flags,
// MARKD_-prefixed environment variables, and an optional .markd.yml
// file, in that order of precedence.
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/conneroisu/markd/internal/logging"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "markd",
	Short: "A local markdown preview server with live reload",
	Long: `markd renders markdown files to styled HTML and serves them locally.

While serving, it watches the source tree and pushes a reload message
over WebSocket to every open browser tab whenever a file changes, so
the preview always reflects what is on disk. The same rendering
pipeline can export a file or a whole directory to self-contained
static HTML.`,
	// main prints errors itself so it can map them to exit codes.
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. It is called once from main.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"Config file (default is .markd.yml)")
	rootCmd.PersistentFlags().StringP("log-level", "l", "info",
		"Log level (debug, info, warn, error)")
	_ = viper.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level"))
}

// initConfig locates and reads the config file, then wires environment
// variable overrides. A missing config file is fine; an unreadable one
// is reported on stderr but does not abort the command.
func initConfig() {
	if cfgFile == "" {
		cfgFile = os.Getenv("MARKD_CONFIG_FILE")
	}
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".markd")
	}

	viper.SetEnvPrefix("MARKD")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	} else if cfgFile != "" {
		fmt.Fprintln(os.Stderr, "Warning: could not read config file:", err)
	}
}

// newLogger builds the process logger from the resolved log-level.
func newLogger() logging.Logger {
	return logging.NewLogger(&logging.LoggerConfig{
		Level:  logging.ParseLevel(viper.GetString("log-level")),
		Format: "text",
		Output: os.Stderr,
	})
}

// Package main provides the hetcount command-line tool.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Exit codes
const (
	ExitSuccess = 0
	ExitError   = 1
	ExitUsage   = 2
)

// Version information (set at build time)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// configName is the config file name in the home directory, without extension.
const configName = ".hetcount"

// exitError carries a specific exit code out of a command.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := newRootCmd()
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		var ee *exitError
		if errors.As(err, &ee) {
			return ee.code
		}
		return ExitUsage
	}
	return ExitSuccess
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "hetcount",
		Short: "Count high-quality heterozygous variants per sample and cohort",
		Long: `hetcount reads per-sample gVCF files for every Cohort_* directory under a
working directory, counts heterozygous calls passing depth and genotype
quality thresholds, and writes a per-cohort summary table and box plots.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
	}

	root.AddCommand(newRunCmd())
	root.AddCommand(newConfigCmd())
	root.AddCommand(newVersionCmd())

	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "hetcount version %s (%s) built %s\n", version, commit, date)
		},
	}
}

// initConfig wires viper to ~/.hetcount.yaml and HETCOUNT_* environment
// variables. A missing config file is not an error.
func initConfig() error {
	setDefaults(viper.GetViper())

	viper.SetEnvPrefix("HETCOUNT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	home, err := os.UserHomeDir()
	if err != nil {
		return nil
	}
	viper.SetConfigFile(filepath.Join(home, configName+".yaml"))
	if err := viper.ReadInConfig(); err != nil {
		if errors.Is(err, os.ErrNotExist) || errors.As(err, new(viper.ConfigFileNotFoundError)) {
			return nil
		}
		return fmt.Errorf("reading config: %w", err)
	}
	return nil
}

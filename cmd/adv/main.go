// Package main provides the adv CLI: generalized Jacobians, abs-normal forms
// and checkpoint schedules of the built-in test functions.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/born-ml/adv/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const version = "v0.1.0-dev"

// app carries the state shared by all commands of one invocation.
type app struct {
	v          *viper.Viper
	configPath string
	cfg        *config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{v: config.New()}

	root := &cobra.Command{
		Use:           "adv",
		Short:         "Automatic differentiation of piecewise-smooth functions",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "configuration file (YAML)")
	flags.String("log-level", "info", "log level: debug, info, warn, error")
	flags.Int("workers", 0, "worker goroutines for view multiplication (0: config)")
	_ = a.v.BindPFlag("log_level", flags.Lookup("log-level"))

	root.AddCommand(
		newVersionCmd(),
		newJacobianCmd(a),
		newANFCmd(a),
		newScheduleCmd(),
	)
	return root
}

// load reads the configuration and installs the logger.
func (a *app) load(cmd *cobra.Command) error {
	if a.configPath != "" {
		a.v.SetConfigFile(a.configPath)
		a.v.SetConfigType("yaml")
		if err := a.v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", a.configPath, err)
		}
	}
	if w, _ := cmd.Flags().GetInt("workers"); w > 0 {
		a.v.Set("parallel.workers", w)
		a.v.Set("parallel.enabled", w > 1)
	}

	cfg, err := config.Decode(a.v)
	if err != nil {
		return err
	}
	lvl, err := cfg.Level()
	if err != nil {
		return err
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: lvl})))
	slog.Debug("configuration loaded",
		slog.String("file", a.v.ConfigFileUsed()),
		slog.Int("workers", cfg.Parallel.Workers),
		slog.Int("checkpoints", cfg.Checkpoints))

	a.cfg = cfg
	return nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "adv: %v\n", err)
		os.Exit(1)
	}
}

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Atelier Contributors

package main

import (
	"errors"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/atelier-dev/atelier/internal/config"
	aterr "github.com/atelier-dev/atelier/pkg/errors"
)

// NewRootCmd creates the root atelier command with all subcommands registered.
// Each invocation gets its own viper instance so tests can run commands in
// isolation.
func NewRootCmd() *cobra.Command {
	v := viper.New()

	root := &cobra.Command{
		Use:           "atelier",
		Short:         "atelier: semantic design-context store",
		Long:          "atelier keeps the design history of interior projects as embedded context records and checks new designs against it.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return initViper(cmd, v)
		},
	}

	root.PersistentFlags().StringP("config", "c", "", "path to config file")
	root.PersistentFlags().String("data-dir", "", "path to data directory")
	root.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")

	root.AddCommand(
		newVersionCmd(),
		newInitCmd(),
		newImportCmd(v),
		newExportCmd(v),
		newStatsCmd(v),
		newQueryCmd(v),
		newAlignCmd(v),
		newSimilarCmd(v),
		newCoherenceCmd(v),
		newDeleteCmd(v),
		newServeCmd(v),
		newSecretCmd(),
	)

	return root
}

// initViper layers defaults, config file, environment and flags onto v so
// the standard precedence (flag > env > file > defaults) holds.
func initViper(cmd *cobra.Command, v *viper.Viper) error {
	config.SetDefaults(v)
	config.SetupEnv(v)

	if cfgFile, _ := cmd.Flags().GetString("config"); cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return aterr.Errorf(aterr.CodeConfigLoadReadFailure, "reading config file: %w", err)
		}
	} else {
		v.SetConfigName("atelier")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/atelier")
		// A missing config file is fine; parse or permission errors are not.
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return aterr.Errorf(aterr.CodeConfigLoadReadFailure, "reading config: %w", err)
			}
		}
	}

	if err := v.BindPFlag("data_dir", cmd.Root().PersistentFlags().Lookup("data-dir")); err != nil {
		return aterr.Errorf(aterr.CodeCLISetupFailure, "binding data-dir flag: %w", err)
	}
	if err := v.BindPFlag("verbose", cmd.Root().PersistentFlags().Lookup("verbose")); err != nil {
		return aterr.Errorf(aterr.CodeCLISetupFailure, "binding verbose flag: %w", err)
	}

	slog.SetDefault(newLogger(cmd.ErrOrStderr(), v))
	config.WarnInsecurePermissions(v.ConfigFileUsed(), slog.Default())
	return nil
}

func newLogger(w io.Writer, v *viper.Viper) *slog.Logger {
	level := slog.LevelInfo
	if v.GetBool("verbose") {
		level = slog.LevelDebug
	} else {
		switch strings.ToLower(v.GetString("log.level")) {
		case "debug":
			level = slog.LevelDebug
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		}
	}

	opts := &slog.HandlerOptions{Level: level}
	if v.GetString("log.format") == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

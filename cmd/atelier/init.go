// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Atelier Contributors

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/atelier-dev/atelier/internal/config"
)

func newInitCmd() *cobra.Command {
	var (
		path  string
		force bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a commented default config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if path == "" {
				var err error
				if path, err = config.DefaultConfigPath(); err != nil {
					return err
				}
			}
			wrote, err := config.WriteDefault(path, force)
			if err != nil {
				return err
			}
			if !wrote {
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "config already exists at %s (use --force to overwrite)\n", path)
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			return err
		},
	}
	cmd.Flags().StringVar(&path, "path", "", "where to write the config (default ~/.config/atelier/atelier.yaml)")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}

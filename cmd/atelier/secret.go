// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Atelier Contributors

package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/atelier-dev/atelier/internal/provider"
	"github.com/atelier-dev/atelier/internal/secrets"
	aterr "github.com/atelier-dev/atelier/pkg/errors"
)

func newSecretCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "secret",
		Short: "Manage embedding provider keys in the OS keyring",
	}
	cmd.AddCommand(
		newSecretSetCmd(),
		newSecretListCmd(),
		newSecretDeleteCmd(),
	)
	return cmd
}

func newSecretSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <openai|google>",
		Short: "Store a provider API key read from stdin",
		Long: "Store a provider API key read from the first line of stdin, then reference it\n" +
			"from the config as embedder.api_key: keyring://atelier/<provider>-api-key.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := provider.Name(args[0])
			if name != provider.ProviderOpenAI && name != provider.ProviderGoogle {
				return aterr.Errorf(aterr.CodeCLIInputInvalid, "unknown provider %q", args[0])
			}

			line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			value := strings.TrimSpace(line)
			if value == "" {
				if err != nil {
					return aterr.Errorf(aterr.CodeCLIInputInvalid, "reading key from stdin: %w", err)
				}
				return aterr.New(aterr.CodeCLIInputInvalid, "empty key on stdin")
			}

			key := secrets.APIKeyName(string(name))
			if err := secretStoreFactory().Set(secrets.DefaultService, key, value); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "stored %s\nset embedder.api_key: %s\n",
				key, secrets.URI(secrets.DefaultService, key))
			return err
		},
	}
}

func newSecretListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored secret names",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			keys, err := secretStoreFactory().List(secrets.DefaultService)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(keys) == 0 {
				_, err = fmt.Fprintln(out, "no secrets stored")
				return err
			}
			for _, k := range keys {
				_, _ = fmt.Fprintln(out, k)
			}
			return nil
		},
	}
}

func newSecretDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a stored secret",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := secretStoreFactory().Delete(secrets.DefaultService, args[0]); err != nil {
				return err
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
			return err
		},
	}
}

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Atelier Contributors

package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/atelier-dev/atelier/internal/embedding"
	"github.com/atelier-dev/atelier/internal/store"
	aterr "github.com/atelier-dev/atelier/pkg/errors"
	"github.com/atelier-dev/atelier/pkg/types"
)

// recordFile is the YAML layout accepted by `atelier import`.
type recordFile struct {
	Records []yamlRecord `yaml:"records"`
}

type yamlRecord struct {
	ID          string            `yaml:"id"`
	Type        string            `yaml:"type"`
	Title       string            `yaml:"title"`
	Description string            `yaml:"description"`
	Embedding   []float32         `yaml:"embedding"`
	Metadata    map[string]string `yaml:"metadata"`
	Timestamp   time.Time         `yaml:"timestamp"`
	Project     string            `yaml:"project"`
}

func parseRecordFile(data []byte, defaultProject string) ([]store.Record, error) {
	var f recordFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, aterr.Errorf(aterr.CodeCLIInputInvalid, "parsing records: %w", err)
	}

	recs := make([]store.Record, 0, len(f.Records))
	for i, r := range f.Records {
		typ, err := types.ParseRecordType(r.Type)
		if err != nil {
			return nil, aterr.Wrapf(err, aterr.CodeCLIInputInvalid, "record %d", i)
		}
		project := r.Project
		if project == "" {
			project = defaultProject
		}
		recs = append(recs, store.Record{
			ID:          r.ID,
			Type:        typ,
			Title:       r.Title,
			Description: r.Description,
			Embedding:   embedding.New(r.Embedding...),
			Metadata:    r.Metadata,
			Timestamp:   r.Timestamp,
			ProjectID:   project,
		})
	}
	return recs, nil
}

func newImportCmd(v *viper.Viper) *cobra.Command {
	var project string

	cmd := &cobra.Command{
		Use:   "import <records.yaml>",
		Short: "Store the records listed in a YAML file",
		Long: "Store every record of a YAML file in one atomic batch. Either all records\n" +
			"are stored or, when one is invalid, none of them.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return aterr.Errorf(aterr.CodeCLIInputInvalid, "reading %s: %w", args[0], err)
			}
			recs, err := parseRecordFile(data, project)
			if err != nil {
				return err
			}

			return withApp(cmd, v, func(ctx context.Context, app *App) error {
				ids, err := app.Store.PutBatch(ctx, recs)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "imported %d records\n", len(ids))
				return err
			})
		},
	}
	cmd.Flags().StringVar(&project, "project", "", "project for records that do not name one")
	return cmd
}

func newExportCmd(v *viper.Viper) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Print the store contents as a JSON snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, v, func(ctx context.Context, app *App) error {
				snapper, ok := app.Store.(store.Snapshotter)
				if !ok {
					return aterr.Errorf(aterr.CodeStoreBackendUnsupported,
						"store backend %q cannot export snapshots", app.Config.Store.Backend)
				}
				snap, err := snapper.Snapshot(ctx)
				if err != nil {
					return err
				}
				data, err := store.Serialize(snap)
				if err != nil {
					return err
				}

				if output == "" {
					_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
					return err
				}
				if err := os.WriteFile(output, data, 0o600); err != nil {
					return aterr.Errorf(aterr.CodeStoreSnapshotWriteFailed, "writing %s: %w", output, err)
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "exported %d records to %s\n", len(snap.Records), output)
				return err
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to file instead of stdout")
	return cmd
}

func newStatsCmd(v *viper.Viper) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show store contents by record type",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, v, func(ctx context.Context, app *App) error {
				st, err := app.Store.Stats(ctx)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd.OutOrStdout(), st)
				}

				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				_, _ = fmt.Fprintf(tw, "records\t%d\n", st.Total)
				_, _ = fmt.Fprintf(tw, "projects\t%d\n", st.Projects)
				_, _ = fmt.Fprintf(tw, "dimension\t%d\n", st.Dimension)
				typeNames := make([]string, 0, len(st.ByType))
				for t := range st.ByType {
					typeNames = append(typeNames, string(t))
				}
				sort.Strings(typeNames)
				for _, t := range typeNames {
					_, _ = fmt.Fprintf(tw, "  %s\t%d\n", t, st.ByType[store.RecordType(t)])
				}
				if app.Sink != nil {
					_, _ = fmt.Fprintf(tw, "snapshot\t%s (%s)\n", app.Config.Snapshot.Path, app.Config.Snapshot.Backend)
				}
				if app.Embedder != nil {
					gs := app.Embedder.Status()
					_, _ = fmt.Fprintf(tw, "embedder\t%s (available=%t upstream_failures=%d invalid_responses=%d)\n",
						app.Embedder.Name(), gs.Available, gs.UpstreamFailures, gs.InvalidResponses)
				}
				return tw.Flush()
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	return cmd
}

func newDeleteCmd(v *viper.Viper) *cobra.Command {
	var project string

	cmd := &cobra.Command{
		Use:   "delete [<id>]",
		Short: "Delete one record, or every record of a project",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			byProject := cmd.Flags().Changed("project")
			if (len(args) == 1) == byProject {
				return aterr.New(aterr.CodeCLIInputInvalid, "pass either a record id or --project")
			}

			return withApp(cmd, v, func(ctx context.Context, app *App) error {
				if byProject {
					n, err := app.Store.DeleteByProject(ctx, project)
					if err != nil {
						return err
					}
					_, err = fmt.Fprintf(cmd.OutOrStdout(), "deleted %d records\n", n)
					return err
				}
				if err := app.Store.Delete(ctx, args[0]); err != nil {
					return err
				}
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
				return err
			})
		},
	}
	cmd.Flags().StringVar(&project, "project", "", "delete every record of this project")
	return cmd
}

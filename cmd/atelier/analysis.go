// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Atelier Contributors

package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/atelier-dev/atelier/internal/embedding"
	"github.com/atelier-dev/atelier/internal/store"
	"github.com/atelier-dev/atelier/internal/store/sqlite"
	aterr "github.com/atelier-dev/atelier/pkg/errors"
)

// vectorFlags are shared by commands that compare against an embedding.
type vectorFlags struct {
	embedding string
	text      string
}

func (f *vectorFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.embedding, "embedding", "", "comma-separated embedding, e.g. 0.1,0.2,0.3")
	cmd.Flags().StringVar(&f.text, "text", "", "free text, embedded by the configured provider")
}

// resolve returns the parsed --embedding, or embeds --text with the app's
// provider.
func (f *vectorFlags) resolve(ctx context.Context, app *App) (embedding.Vector, error) {
	vec, err := parseVector(f.embedding)
	if err != nil || vec != nil {
		return vec, err
	}
	if f.text == "" {
		return nil, aterr.New(aterr.CodeCLIInputInvalid, "pass --embedding or --text")
	}
	if app.Embedder == nil {
		return nil, aterr.New(aterr.CodeCLIInputInvalid, "--text requires embedder.provider to be configured")
	}
	return app.Embedder.Embed(ctx, f.text)
}

func printRecords(w io.Writer, recs []store.ScoredRecord) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "SCORE\tTYPE\tID\tTITLE\tPROJECT")
	for _, r := range recs {
		_, _ = fmt.Fprintf(tw, "%.4f\t%s\t%s\t%s\t%s\n", r.RelevanceScore, r.Type, r.ID, r.Title, r.ProjectID)
	}
	return tw.Flush()
}

func newQueryCmd(v *viper.Viper) *cobra.Command {
	var (
		embeddingRaw string
		text         string
		typeNames    []string
		project      string
		limit        int
		threshold    float64
		fromSnapshot bool
		asJSON       bool
	)

	cmd := &cobra.Command{
		Use:   "query",
		Short: "Rank stored records by similarity",
		Long: "Rank stored records by cosine similarity to --embedding (or to --text when an\n" +
			"embedding provider is configured). Records scoring below --threshold are dropped.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			vec, err := parseVector(embeddingRaw)
			if err != nil {
				return err
			}
			recordTypes, err := parseTypes(typeNames)
			if err != nil {
				return err
			}

			if fromSnapshot && (vec == nil || text != "" || len(recordTypes) > 0 || project != "") {
				return aterr.New(aterr.CodeCLIInputInvalid,
					"--from-snapshot takes only --embedding and --limit")
			}

			return withApp(cmd, v, func(ctx context.Context, app *App) error {
				if fromSnapshot {
					return querySnapshot(ctx, cmd.OutOrStdout(), app, vec, limit, asJSON)
				}
				res, err := app.Store.Query(ctx, store.Query{
					Text:      text,
					Embedding: vec,
					Types:     recordTypes,
					ProjectID: project,
					Limit:     limit,
					Threshold: threshold,
				})
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd.OutOrStdout(), res)
				}
				if err := printRecords(cmd.OutOrStdout(), res.Records); err != nil {
					return err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "%d of %d matches in %s\n", len(res.Records), res.TotalMatches, res.Elapsed)
				return err
			})
		},
	}

	cmd.Flags().StringVar(&embeddingRaw, "embedding", "", "comma-separated query embedding")
	cmd.Flags().StringVar(&text, "text", "", "query text, embedded by the configured provider")
	cmd.Flags().StringSliceVar(&typeNames, "type", nil, "restrict to record types (repeatable)")
	cmd.Flags().StringVar(&project, "project", "", "restrict to one project")
	cmd.Flags().IntVar(&limit, "limit", store.DefaultQueryLimit, "maximum number of results")
	cmd.Flags().Float64Var(&threshold, "threshold", 0, "minimum similarity, -1 keeps everything")
	cmd.Flags().BoolVar(&fromSnapshot, "from-snapshot", false, "search the saved sqlite snapshot by L2 distance")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	return cmd
}

// nearestSearcher is a snapshot sink with its own vector index.
type nearestSearcher interface {
	Nearest(ctx context.Context, query embedding.Vector, k int) ([]sqlite.Neighbor, error)
}

// querySnapshot looks up the saved snapshot's nearest neighbours of vec.
// Titles come from the live store and are blank for records deleted since
// the last save.
func querySnapshot(ctx context.Context, w io.Writer, app *App, vec embedding.Vector, limit int, asJSON bool) error {
	searcher, ok := app.Sink.(nearestSearcher)
	if !ok {
		return aterr.Errorf(aterr.CodeCLIInputInvalid,
			"--from-snapshot needs snapshot.backend sqlite, got %q", app.Config.Snapshot.Backend)
	}
	if limit <= 0 {
		limit = store.DefaultQueryLimit
	}
	neighbors, err := searcher.Nearest(ctx, vec, limit)
	if err != nil {
		return err
	}
	if asJSON {
		if neighbors == nil {
			neighbors = []sqlite.Neighbor{}
		}
		return writeJSON(w, neighbors)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "DISTANCE\tID\tTITLE")
	for _, n := range neighbors {
		var title string
		if rec, err := app.Store.Get(ctx, n.ID); err == nil {
			title = rec.Title
		}
		_, _ = fmt.Fprintf(tw, "%.4f\t%s\t%s\n", n.Distance, n.ID, title)
	}
	return tw.Flush()
}

func newAlignCmd(v *viper.Viper) *cobra.Command {
	var (
		vf      vectorFlags
		project string
		asJSON  bool
	)

	cmd := &cobra.Command{
		Use:   "align",
		Short: "Check a design against the project's goals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, v, func(ctx context.Context, app *App) error {
				vec, err := vf.resolve(ctx, app)
				if err != nil {
					return err
				}
				res, err := app.Alignment.ValidateDesignAlignment(ctx, vec, project)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd.OutOrStdout(), res)
				}

				out := cmd.OutOrStdout()
				_, _ = fmt.Fprintf(out, "aligned: %t\nscore:   %.4f\n", res.IsAligned, res.Score)
				if res.MatchedGoal != nil {
					_, _ = fmt.Fprintf(out, "goal:    %s (%s)\n", res.MatchedGoal.Title, res.MatchedGoal.ID)
				}
				for _, adj := range res.Adjustments {
					_, _ = fmt.Fprintf(out, "- %s\n", adj)
				}
				return nil
			})
		},
	}
	vf.register(cmd)
	cmd.Flags().StringVar(&project, "project", "", "project whose goals apply")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	return cmd
}

func newSimilarCmd(v *viper.Viper) *cobra.Command {
	var (
		vf      vectorFlags
		project string
		asJSON  bool
	)

	cmd := &cobra.Command{
		Use:   "similar",
		Short: "Find earlier design states and scans similar to a design",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, v, func(ctx context.Context, app *App) error {
				vec, err := vf.resolve(ctx, app)
				if err != nil {
					return err
				}
				recs, err := app.Alignment.FindSimilarDesigns(ctx, vec, project)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd.OutOrStdout(), recs)
				}
				return printRecords(cmd.OutOrStdout(), recs)
			})
		},
	}
	vf.register(cmd)
	cmd.Flags().StringVar(&project, "project", "", "restrict to one project")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	return cmd
}

func newCoherenceCmd(v *viper.Viper) *cobra.Command {
	var (
		project string
		asJSON  bool
	)

	cmd := &cobra.Command{
		Use:   "coherence",
		Short: "Score how consistent a project's recommendations are",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, v, func(ctx context.Context, app *App) error {
				rep, err := app.Coherence.ValidateContextCoherence(ctx, project)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd.OutOrStdout(), rep)
				}

				out := cmd.OutOrStdout()
				_, _ = fmt.Fprintf(out, "coherence: %.4f\nalignment: %.4f\nconflicts: %d\n",
					rep.CoherenceScore, rep.AlignmentScore, len(rep.Conflicts))
				for _, c := range rep.Conflicts {
					_, _ = fmt.Fprintf(out, "  [%s] %s\n", c.Severity, c.Description)
				}
				for _, r := range rep.Recommendations {
					_, _ = fmt.Fprintf(out, "- %s\n", r)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&project, "project", "", "project to analyze (all records when empty)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	return cmd
}

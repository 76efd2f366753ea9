package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/evcollect/internal/eventlog"
	"github.com/alfredjeanlab/evcollect/internal/model"
	"github.com/alfredjeanlab/evcollect/internal/store"
	"github.com/alfredjeanlab/evcollect/internal/store/postgres"
	"github.com/alfredjeanlab/evcollect/internal/ui"
)

var logCmd = &cobra.Command{
	Use:     "log",
	Short:   "Inspect the local event log",
	GroupID: "inspect",
}

var logStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print the number of stored events and their publish range",
	Long: `Print the number of stored events and their publish range.

When EVCOLLECT_DATABASE_URL is set, the Postgres archive's event count and
latest published time are reported alongside the local log.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		log := eventlog.New(cfg.EventLog)
		evs, err := log.Load()
		if err != nil {
			return err
		}
		stats := summarize(log.Path(), evs)

		if cfg.DatabaseURL != "" {
			archive, err := postgres.New(cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer archive.Close()
			if stats.Archive, err = summarizeArchive(cmd.Context(), archive); err != nil {
				return err
			}
		}

		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), stats)
		}
		printLogStats(cmd.OutOrStdout(), stats)
		return nil
	},
}

func init() {
	logCmd.AddCommand(logStatsCmd)
}

type logStats struct {
	Path           string `json:"path"`
	Events         int    `json:"events"`
	FirstPublished string `json:"first_published,omitempty"`
	LastPublished  string `json:"last_published,omitempty"`
	// Unpublished counts events without a usable published field.
	Unpublished int `json:"unpublished,omitempty"`

	Archive *archiveStats `json:"archive,omitempty"`
}

type archiveStats struct {
	Events          int64  `json:"events"`
	LatestPublished string `json:"latest_published,omitempty"`
}

// summarize reports the published values of the first and last events that
// carry one, in log order.
func summarize(path string, evs []model.Event) logStats {
	s := logStats{Path: path, Events: len(evs)}
	for _, ev := range evs {
		p, err := ev.Published()
		if err != nil {
			s.Unpublished++
			continue
		}
		if s.FirstPublished == "" {
			s.FirstPublished = p
		}
		s.LastPublished = p
	}
	return s
}

func summarizeArchive(ctx context.Context, a store.Archive) (*archiveStats, error) {
	n, err := a.CountEvents(ctx)
	if err != nil {
		return nil, err
	}
	latest, err := a.LatestPublished(ctx)
	if err != nil {
		return nil, err
	}
	return &archiveStats{Events: n, LatestPublished: latest}, nil
}

func printLogStats(w io.Writer, s logStats) {
	fmt.Fprintf(w, "Event log:  %s\n", ui.RenderAccent(s.Path))
	fmt.Fprintf(w, "Events:     %d\n", s.Events)
	if s.Events > 0 {
		fmt.Fprintf(w, "First:      %s\n", s.FirstPublished)
		fmt.Fprintf(w, "Last:       %s\n", s.LastPublished)
		if s.Unpublished > 0 {
			fmt.Fprintf(w, "%s %d events have no published time\n", ui.RenderWarn("warning:"), s.Unpublished)
		}
	}
	if a := s.Archive; a != nil {
		fmt.Fprintf(w, "Archive:    %d events", a.Events)
		if a.LatestPublished != "" {
			fmt.Fprintf(w, ", latest %s", a.LatestPublished)
		}
		fmt.Fprintln(w)
	}
}

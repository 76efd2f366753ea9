package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/evcollect/internal/model"
	"github.com/alfredjeanlab/evcollect/internal/state"
	"github.com/alfredjeanlab/evcollect/internal/ui"
)

var stateCmd = &cobra.Command{
	Use:     "state",
	Short:   "Inspect or reset the persisted collection state",
	GroupID: "inspect",
}

var stateShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the watermark and cached token",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := readState(cmd)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), st)
		}
		printState(cmd.OutOrStdout(), st)
		return nil
	},
}

var stateResetKeepToken bool

var stateResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Clear the watermark so the next run collects everything",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := state.Open(cfg.StateBackend, cfg.StateFile)
		if err != nil {
			return err
		}
		defer store.Close()

		cur, err := store.Read(cmd.Context())
		if err != nil {
			return err
		}
		if err := store.Write(cmd.Context(), resetState(cur, stateResetKeepToken)); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "State reset.")
		return nil
	},
}

func init() {
	stateResetCmd.Flags().BoolVar(&stateResetKeepToken, "keep-token", false, "keep the cached API token")

	stateCmd.AddCommand(stateShowCmd)
	stateCmd.AddCommand(stateResetCmd)
}

// resetState clears the watermark, and the token unless keepToken is set.
// Keys written by other tools stay.
func resetState(cur model.State, keepToken bool) model.State {
	next := model.State{Extra: cur.Extra}
	if keepToken {
		next.APIToken = cur.APIToken
	}
	return next
}

func readState(cmd *cobra.Command) (model.State, error) {
	store, err := state.Open(cfg.StateBackend, cfg.StateFile)
	if err != nil {
		return model.State{}, err
	}
	defer store.Close()
	return store.Read(cmd.Context())
}

func printState(w io.Writer, st model.State) {
	watermark := st.Watermark()
	if watermark == "" {
		watermark = ui.RenderMuted("(none)")
	}
	token := ui.RenderMuted("(none)")
	if t := st.Token(); t != "" {
		token = abbreviate(t, 16)
	}
	fmt.Fprintf(w, "Last event time: %s\n", watermark)
	fmt.Fprintf(w, "API token:       %s\n", token)
}

// abbreviate keeps the first n bytes of s so a token never lands in a
// terminal scrollback whole.
func abbreviate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	fmt.Fprintln(w, string(data))
	return nil
}

package main

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/evcollect/internal/auth"
	"github.com/alfredjeanlab/evcollect/internal/ui"
)

var tokenCmd = &cobra.Command{
	Use:     "token",
	Short:   "Inspect the cached API token",
	GroupID: "inspect",
}

var tokenCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Report whether the cached token is still valid",
	Long: `Report whether the cached token is still valid.

The token is decoded without verifying its signature; only the exp claim is
inspected. Exits non-zero when the next run would have to refresh it.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := readState(cmd)
		if err != nil {
			return err
		}
		status := checkToken(st.Token(), time.Now())
		if jsonOutput {
			if err := printJSON(cmd.OutOrStdout(), status); err != nil {
				return err
			}
		} else {
			printTokenStatus(cmd.OutOrStdout(), status)
		}
		if !status.Valid {
			return errTokenInvalid
		}
		return nil
	},
}

var errTokenInvalid = errors.New("cached token is not usable")

func init() {
	tokenCmd.AddCommand(tokenCheckCmd)
}

type tokenStatus struct {
	Present   bool       `json:"present"`
	Valid     bool       `json:"valid"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	Reason    string     `json:"reason,omitempty"`
}

// checkToken mirrors the run's validity rule: exp equal to the current second
// is still valid.
func checkToken(token string, now time.Time) tokenStatus {
	if token == "" {
		return tokenStatus{Reason: "no token cached"}
	}
	exp, err := auth.Expiry(token)
	if err != nil {
		return tokenStatus{Present: true, Reason: err.Error()}
	}
	exp = exp.UTC()
	s := tokenStatus{Present: true, ExpiresAt: &exp}
	if exp.Unix() < now.Unix() {
		s.Reason = "expired"
		return s
	}
	s.Valid = true
	return s
}

func printTokenStatus(w io.Writer, s tokenStatus) {
	switch {
	case s.Valid:
		fmt.Fprintf(w, "%s expires %s\n", ui.RenderOK("valid"), s.ExpiresAt.Format(time.RFC3339))
	case s.ExpiresAt != nil:
		fmt.Fprintf(w, "%s at %s\n", ui.RenderWarn("expired"), s.ExpiresAt.Format(time.RFC3339))
	default:
		fmt.Fprintf(w, "%s: %s\n", ui.RenderWarn("invalid"), s.Reason)
	}
}

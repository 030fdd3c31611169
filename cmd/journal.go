package cmd

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go-grid-engine/internal/config"
	"go-grid-engine/internal/store"
)

// sessionReport is what `journal SESSION` prints.
type sessionReport struct {
	Session  store.SessionInfo `json:"session"`
	Requests []store.Entry     `json:"requests"`
	Errors   []string          `json:"errors"`
}

func newJournalCommand(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "journal [SESSION]",
		Short: "Print what the request journal recorded",
		Long: `Print the sessions recorded in the journal at journal-dsn, newest first.
Given a SESSION id, print that session with its processed requests and errors.

The default DSN is in-memory and empty; point journal-dsn at a file that an
earlier run or replay wrote with journal-enabled.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return printJournal(cmd, v, args)
		},
	}
}

func printJournal(cmd *cobra.Command, v *viper.Viper, args []string) error {
	if err := config.ReadFile(v); err != nil {
		return err
	}
	cfg, err := config.Load(v)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	j, err := store.Open(cfg.Journal.DSN)
	if err != nil {
		return err
	}
	defer j.Close()

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")

	if len(args) == 0 {
		sessions, err := j.ListSessions()
		if err != nil {
			return fmt.Errorf("failed to list sessions: %w", err)
		}
		if sessions == nil {
			sessions = []store.SessionInfo{}
		}
		return encoder.Encode(sessions)
	}

	id := args[0]
	report := sessionReport{}
	report.Session, err = j.GetSession(id)
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("session %s is not in the journal", id)
	}
	if err != nil {
		return fmt.Errorf("failed to read session: %w", err)
	}
	if report.Requests, err = j.ListRequests(id); err != nil {
		return fmt.Errorf("failed to list requests: %w", err)
	}
	if report.Errors, err = j.ListErrors(id); err != nil {
		return fmt.Errorf("failed to list errors: %w", err)
	}
	return encoder.Encode(report)
}

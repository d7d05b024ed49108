package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rzbill/synthlog/internal/synth"
)

// NewSessionCommand constructs the `session` command group and subcommands.
func NewSessionCommand(baseURL BaseURLFunc) *cobra.Command {
	sessionCmd := &cobra.Command{Use: "session", Short: "Session log operations"}

	sessionCmd.AddCommand(
		newSessionListCommand(baseURL),
		newSessionNewCommand(baseURL),
		newSessionCountCommand(baseURL),
		newSessionPageCommand(baseURL),
		newSessionAppendCommand(baseURL),
		newSessionUpdateCommand(baseURL),
		newSessionClearCommand(baseURL),
		newSessionExportCommand(baseURL),
		newSessionSearchCommand(baseURL),
		newSessionRepairCommand(baseURL),
	)

	return sessionCmd
}

func addSessionFlag(cmd *cobra.Command) {
	cmd.Flags().StringP("session", "s", "", "Session uid")
	_ = cmd.MarkFlagRequired("session")
}

// newSessionListCommand constructs the `session list` subcommand.
func newSessionListCommand(baseURL BaseURLFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List sessions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			list, err := transportFor(baseURL).List(cmd.Context())
			if err != nil {
				return err
			}
			for _, s := range list {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), s)
			}
			return nil
		},
	}
}

// newSessionNewCommand constructs the `session new` subcommand.
func newSessionNewCommand(baseURL BaseURLFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "new",
		Short: "Generate a new session uid",
		RunE: func(cmd *cobra.Command, _ []string) error {
			id, err := transportFor(baseURL).NewSession(cmd.Context())
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), id)
			return nil
		},
	}
}

// newSessionCountCommand constructs the `session count` subcommand.
func newSessionCountCommand(baseURL BaseURLFunc) *cobra.Command {
	countCmd := &cobra.Command{
		Use:   "count",
		Short: "Print the number of records in a session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			session, _ := cmd.Flags().GetString("session")
			n, err := transportFor(baseURL).Count(cmd.Context(), session)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), n)
			return nil
		},
	}
	addSessionFlag(countCmd)
	return countCmd
}

// newSessionPageCommand constructs the `session page` subcommand.
func newSessionPageCommand(baseURL BaseURLFunc) *cobra.Command {
	pageCmd := &cobra.Command{
		Use:   "page",
		Short: "Show one page of records, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			session, _ := cmd.Flags().GetString("session")
			page, _ := cmd.Flags().GetInt("page")
			size, _ := cmd.Flags().GetInt("page-size")
			p, err := transportFor(baseURL).Page(cmd.Context(), session, page, size)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), p)
		},
	}
	addSessionFlag(pageCmd)
	pageCmd.Flags().Int("page", 1, "1-based page number")
	pageCmd.Flags().Int("page-size", 0, "Records per page (0 = server default)")
	return pageCmd
}

// newSessionAppendCommand constructs the `session append` subcommand.
func newSessionAppendCommand(baseURL BaseURLFunc) *cobra.Command {
	appendCmd := &cobra.Command{
		Use:   "append",
		Short: "Append records from --data or a JSONL --file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			session, _ := cmd.Flags().GetString("session")
			data, _ := cmd.Flags().GetString("data")
			file, _ := cmd.Flags().GetString("file")
			if (data == "") == (file == "") {
				return errors.New("exactly one of --data or --file is required")
			}
			var recs []synth.Record
			if data != "" {
				var rec synth.Record
				if err := json.Unmarshal([]byte(data), &rec); err != nil {
					return fmt.Errorf("invalid --data: %w", err)
				}
				recs = append(recs, rec)
			} else {
				var err error
				if recs, err = readRecords(file, cmd.InOrStdin()); err != nil {
					return err
				}
			}
			t := transportFor(baseURL)
			for i, rec := range recs {
				stored, err := t.Append(cmd.Context(), session, rec)
				if err != nil {
					return fmt.Errorf("record %d not persisted (%d stored): %w", i+1, i, err)
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "id:", stored.ID)
			}
			return nil
		},
	}
	addSessionFlag(appendCmd)
	appendCmd.Flags().String("data", "", "Record JSON")
	appendCmd.Flags().String("file", "", "JSONL file with one record per line (- for stdin)")
	return appendCmd
}

// newSessionUpdateCommand constructs the `session update` subcommand.
func newSessionUpdateCommand(baseURL BaseURLFunc) *cobra.Command {
	updateCmd := &cobra.Command{
		Use:   "update",
		Short: "Replace the record with --id",
		RunE: func(cmd *cobra.Command, _ []string) error {
			session, _ := cmd.Flags().GetString("session")
			id, _ := cmd.Flags().GetString("id")
			data, _ := cmd.Flags().GetString("data")
			var rec synth.Record
			if err := json.Unmarshal([]byte(data), &rec); err != nil {
				return fmt.Errorf("invalid --data: %w", err)
			}
			if err := transportFor(baseURL).Update(cmd.Context(), session, id, rec); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "status:", "OK")
			return nil
		},
	}
	addSessionFlag(updateCmd)
	updateCmd.Flags().String("id", "", "Record id")
	updateCmd.Flags().String("data", "", "Replacement record JSON")
	_ = updateCmd.MarkFlagRequired("id")
	_ = updateCmd.MarkFlagRequired("data")
	return updateCmd
}

// newSessionClearCommand constructs the `session clear` subcommand.
func newSessionClearCommand(baseURL BaseURLFunc) *cobra.Command {
	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every record of a session (requires --confirm)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			session, _ := cmd.Flags().GetString("session")
			confirm, _ := cmd.Flags().GetBool("confirm")
			if !confirm {
				return errors.New("refusing to clear without --confirm")
			}
			if err := transportFor(baseURL).Clear(cmd.Context(), session); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "status:", "OK")
			return nil
		},
	}
	addSessionFlag(clearCmd)
	clearCmd.Flags().Bool("confirm", false, "Confirm deletion")
	return clearCmd
}

// newSessionExportCommand constructs the `session export` subcommand.
func newSessionExportCommand(baseURL BaseURLFunc) *cobra.Command {
	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Write a session as JSON Lines, oldest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			session, _ := cmd.Flags().GetString("session")
			out, _ := cmd.Flags().GetString("out")
			w := cmd.OutOrStdout()
			if out != "" {
				f, err := os.Create(out)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			return transportFor(baseURL).Export(cmd.Context(), session, w)
		},
	}
	addSessionFlag(exportCmd)
	exportCmd.Flags().StringP("out", "o", "", "Output file (default stdout)")
	return exportCmd
}

// newSessionSearchCommand constructs the `session search` subcommand.
func newSessionSearchCommand(baseURL BaseURLFunc) *cobra.Command {
	searchCmd := &cobra.Command{
		Use:   "search",
		Short: "Find records matching a CEL filter, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			session, _ := cmd.Flags().GetString("session")
			filter, _ := cmd.Flags().GetString("filter")
			limit, _ := cmd.Flags().GetInt("limit")
			hits, err := transportFor(baseURL).Search(cmd.Context(), session, filter, limit)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			for _, h := range hits {
				_ = enc.Encode(h)
			}
			return nil
		},
	}
	addSessionFlag(searchCmd)
	searchCmd.Flags().String("filter", "", `CEL filter, e.g. json.modelUsed == "gemini" && !json.isError`)
	searchCmd.Flags().Int("limit", 0, "Maximum hits (0 = server default)")
	return searchCmd
}

// newSessionRepairCommand constructs the `session repair` subcommand.
func newSessionRepairCommand(baseURL BaseURLFunc) *cobra.Command {
	repairCmd := &cobra.Command{
		Use:   "repair",
		Short: "Reconcile the session index with its stored chunks",
		RunE: func(cmd *cobra.Command, _ []string) error {
			session, _ := cmd.Flags().GetString("session")
			res, err := transportFor(baseURL).Repair(cmd.Context(), session)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
	addSessionFlag(repairCmd)
	return repairCmd
}

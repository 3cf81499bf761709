package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/csheth/docchat/internal/conversation"
	"github.com/csheth/docchat/internal/ragapi"
)

const summaryWidth = 100

func newListCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List indexed documents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer sess.close()

			docs, err := sess.client.ListSummaries(cmd.Context())
			if err != nil {
				return fmt.Errorf("list documents: %w", err)
			}
			out := cmd.OutOrStdout()
			if len(docs) == 0 {
				fmt.Fprintln(out, "No indexed documents.")
				return nil
			}
			for _, doc := range docs {
				fmt.Fprintf(out, "%s  %s\n", color.CyanString(doc.FileID), doc.FileName)
				if summary := shorten(doc.Summary, summaryWidth); summary != "" {
					fmt.Fprintf(out, "    %s\n", summary)
				}
			}
			return nil
		},
	}
}

func newDeleteCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <file-id>",
		Short: "Delete the index of a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer sess.close()

			resp, err := sess.client.DeleteIndex(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("delete %s: %w", args[0], err)
			}
			message := strings.TrimSpace(resp.Message)
			if message == "" {
				message = "Deleted index " + args[0] + "."
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", color.GreenString("✓"), message)
			return nil
		},
	}
}

func newQueryCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "query <file-id> <text...>",
		Short: "Run one query against a document and print the transcript",
		Long: `Run a single question through the conversation and print the resulting transcript.
The command exits non-zero when the query failed.

Examples:
  docchat query 3f2a9c "What is the refund policy?"`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer sess.close()

			ctrl := sess.newConversation(args[0])
			defer ctrl.Close()
			ctrl.Submit(strings.Join(args[1:], " "))

			printTranscript(cmd.OutOrStdout(), ctrl.Transcript())
			if lastErr := ctrl.LastError(); lastErr != "" {
				return errors.New(lastErr)
			}
			return nil
		},
	}
}

func newSearchCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "search <text...>",
		Short: "Rank indexed documents by their summaries",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer sess.close()

			resp, err := sess.client.QuerySummaries(cmd.Context(), ragapi.QueryRequest{
				QueryText: strings.Join(args, " "),
				NResults:  sess.cfg.ResultLimit,
			})
			if err != nil {
				return fmt.Errorf("search summaries: %w", err)
			}
			out := cmd.OutOrStdout()
			if len(resp.Results) == 0 {
				fmt.Fprintln(out, "No matching documents.")
				return nil
			}
			for idx, hit := range resp.Results {
				name := hit.FileName
				if name == "" {
					name = hit.FileID
				}
				fmt.Fprintf(out, "%d. %s  %s  %s\n", idx+1, color.CyanString(hit.FileID), name, color.YellowString("%.2f", hit.Score))
				if summary := shorten(hit.Summary, summaryWidth); summary != "" {
					fmt.Fprintf(out, "   %s\n", summary)
				}
			}
			return nil
		},
	}
}

func newAskCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ask <file-id> <text...>",
		Short: "Ask for a generated answer grounded in a document",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer sess.close()

			resp, err := sess.client.QueryChunksChat(cmd.Context(), args[0], ragapi.ChatRequest{
				QueryText: strings.Join(args[1:], " "),
				NResults:  sess.cfg.ResultLimit,
			})
			if err != nil {
				return fmt.Errorf("ask %s: %w", args[0], err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, strings.TrimSpace(resp.Answer))
			if len(resp.Results) > 0 {
				fmt.Fprintln(out)
				fmt.Fprintln(out, color.New(color.Bold).Sprint("Sources"))
				printRecords(out, resp.Results)
			}
			return nil
		},
	}
}

func printTranscript(w io.Writer, entries []conversation.Entry) {
	for _, entry := range entries {
		switch entry.Kind {
		case conversation.KindMessage:
			if entry.IsUser() {
				fmt.Fprintf(w, "%s %s\n", color.New(color.Bold).Sprint("You:"), entry.Text)
			} else {
				fmt.Fprintf(w, "%s %s\n", color.MagentaString("Assistant:"), entry.Text)
			}
		case conversation.KindResultSet:
			fmt.Fprintln(w, color.MagentaString("Results:"))
			if len(entry.Records) == 0 {
				fmt.Fprintln(w, "  No matching passages.")
				continue
			}
			printRecords(w, entry.Records)
		}
	}
}

func printRecords(w io.Writer, records []ragapi.Record) {
	for idx, record := range records {
		header := fmt.Sprintf("  %d. %s", idx+1, color.YellowString("%.2f", record.Score))
		if source := record.Source(); source != "" {
			header += "  " + source
		}
		fmt.Fprintln(w, header)
		fmt.Fprintf(w, "     %s\n", strings.TrimSpace(record.Text))
	}
}

func shorten(value string, limit int) string {
	value = strings.Join(strings.Fields(value), " ")
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return strings.TrimSpace(string(runes[:limit])) + "…"
}

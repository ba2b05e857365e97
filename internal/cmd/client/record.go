// Package client contains Cobra CLI commands for cleave.
package client

import (
	"encoding/json"
	"fmt"

	transports "github.com/rzbill/cleave/internal/cmd/client/transports"
	"github.com/spf13/cobra"
)

// BaseURLFunc provides the base HTTP API URL (e.g., from env or flag).
type BaseURLFunc func() string

func getTransport(baseURL BaseURLFunc) transports.NodeTransport {
	// For now, only HTTP transport; can add gRPC in future.
	return transports.NewHTTPTransport(baseURL)
}

// NewRecordCommand constructs the `record` command group and subcommands.
func NewRecordCommand(baseURL BaseURLFunc) *cobra.Command {
	recordCmd := &cobra.Command{Use: "record", Short: "Record operations"}

	recordCmd.AddCommand(
		newRecordCreateCommand(baseURL),
		newRecordGetCommand(baseURL),
		newRecordListCommand(baseURL),
		newRecordSetTextCommand(baseURL),
		newRecordDeleteCommand(baseURL),
	)

	return recordCmd
}

// newRecordCreateCommand constructs the `record create` subcommand.
func newRecordCreateCommand(baseURL BaseURLFunc) *cobra.Command {
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a record from text",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ns, _ := cmd.Flags().GetString("namespace")
			id, _ := cmd.Flags().GetString("id")
			text, _ := cmd.Flags().GetString("text")

			newID, token, err := getTransport(baseURL).CreateRecord(cmd.Context(), ns, id, text)
			if err != nil {
				return err
			}
			out := map[string]interface{}{
				"status": "OK",
				"id":     newID,
				"token":  token,
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}
	createCmd.Flags().StringP("namespace", "n", "default", "Namespace")
	createCmd.Flags().String("id", "", "Record id (generated if empty)")
	createCmd.Flags().String("text", "", "Record text")
	return createCmd
}

// newRecordGetCommand constructs the `record get` subcommand.
func newRecordGetCommand(baseURL BaseURLFunc) *cobra.Command {
	getCmd := &cobra.Command{
		Use:   "get",
		Short: "Fetch a record's properties and version token",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ns, _ := cmd.Flags().GetString("namespace")
			id, _ := cmd.Flags().GetString("id")
			if id == "" {
				return fmt.Errorf("record id is required")
			}

			rec, err := getTransport(baseURL).GetRecord(cmd.Context(), ns, id)
			if err != nil {
				return err
			}
			var out struct {
				ID             string   `json:"id"`
				Text           string   `json:"text,omitempty"`
				Segments       []string `json:"segments,omitempty"`
				SplitCount     int64    `json:"split_count"`
				LastSplitDepth int64    `json:"last_split_depth"`
				Token          string   `json:"token"`
			}
			out.ID = rec.ID
			out.Text = rec.Text
			out.Segments = rec.Segments
			out.SplitCount = rec.SplitCount
			out.LastSplitDepth = rec.LastSplitDepth
			out.Token = rec.Token
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}
	getCmd.Flags().StringP("namespace", "n", "default", "Namespace")
	getCmd.Flags().String("id", "", "Record id")
	return getCmd
}

// newRecordListCommand constructs the `record list` subcommand.
func newRecordListCommand(baseURL BaseURLFunc) *cobra.Command {
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List records in a namespace",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ns, _ := cmd.Flags().GetString("namespace")
			limit, _ := cmd.Flags().GetInt("limit")

			recs, err := getTransport(baseURL).ListRecords(cmd.Context(), ns, limit)
			if err != nil {
				return err
			}
			type item struct {
				ID             string `json:"id"`
				SplitCount     int64  `json:"split_count"`
				LastSplitDepth int64  `json:"last_split_depth"`
				Segments       int    `json:"segments"`
				Token          string `json:"token"`
				UpdatedAtMs    int64  `json:"updated_at_ms,omitempty"`
			}
			var out struct {
				Namespace string `json:"namespace"`
				Records   []item `json:"records"`
			}
			out.Namespace = ns
			out.Records = make([]item, 0, len(recs))
			for _, r := range recs {
				segs := len(r.Segments)
				if segs == 0 && r.Text != "" {
					segs = 1
				}
				out.Records = append(out.Records, item{
					ID:             r.ID,
					SplitCount:     r.SplitCount,
					LastSplitDepth: r.LastSplitDepth,
					Segments:       segs,
					Token:          r.Token,
					UpdatedAtMs:    r.UpdatedAtMs,
				})
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}
	listCmd.Flags().StringP("namespace", "n", "default", "Namespace")
	listCmd.Flags().Int("limit", 100, "Max records to return")
	return listCmd
}

// newRecordSetTextCommand constructs the `record set-text` subcommand.
func newRecordSetTextCommand(baseURL BaseURLFunc) *cobra.Command {
	setTextCmd := &cobra.Command{
		Use:   "set-text",
		Short: "Replace a record's text and reset its split state",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ns, _ := cmd.Flags().GetString("namespace")
			id, _ := cmd.Flags().GetString("id")
			text, _ := cmd.Flags().GetString("text")
			if id == "" {
				return fmt.Errorf("record id is required")
			}

			token, err := getTransport(baseURL).SetRecordText(cmd.Context(), ns, id, text)
			if err != nil {
				return err
			}
			out := map[string]interface{}{
				"status": "OK",
				"id":     id,
				"token":  token,
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}
	setTextCmd.Flags().StringP("namespace", "n", "default", "Namespace")
	setTextCmd.Flags().String("id", "", "Record id")
	setTextCmd.Flags().String("text", "", "New record text")
	return setTextCmd
}

// newRecordDeleteCommand constructs the `record delete` subcommand.
func newRecordDeleteCommand(baseURL BaseURLFunc) *cobra.Command {
	deleteCmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete a record",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ns, _ := cmd.Flags().GetString("namespace")
			id, _ := cmd.Flags().GetString("id")
			if id == "" {
				return fmt.Errorf("record id is required")
			}

			if err := getTransport(baseURL).DeleteRecord(cmd.Context(), ns, id); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "status:", "OK")
			return nil
		},
	}
	deleteCmd.Flags().StringP("namespace", "n", "default", "Namespace")
	deleteCmd.Flags().String("id", "", "Record id")
	return deleteCmd
}

package client

import (
	"encoding/json"
	"fmt"

	transports "github.com/rzbill/cleave/internal/cmd/client/transports"
	"github.com/spf13/cobra"
)

// NewStepCommand constructs the `step` command group and subcommands.
func NewStepCommand(baseURL BaseURLFunc) *cobra.Command {
	stepCmd := &cobra.Command{Use: "step", Short: "Halving step operations"}

	stepCmd.AddCommand(
		newStepTriggerCommand(baseURL),
		newStepRunCommand(baseURL),
		newStepResultsCommand(baseURL),
		newStepCursorCommand(baseURL),
	)

	return stepCmd
}

// newStepTriggerCommand constructs the `step trigger` subcommand.
func newStepTriggerCommand(baseURL BaseURLFunc) *cobra.Command {
	triggerCmd := &cobra.Command{
		Use:   "trigger",
		Short: "Trigger one asynchronous step (outcome lands on the results feed)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ns, _ := cmd.Flags().GetString("namespace")
			id, _ := cmd.Flags().GetString("id")
			depth, _ := cmd.Flags().GetInt64("depth")
			if id == "" {
				return fmt.Errorf("record id is required")
			}

			ack, err := getTransport(baseURL).TriggerStep(cmd.Context(), ns, id, depth)
			if err != nil {
				return err
			}
			out := map[string]interface{}{
				"entity_id": ack.EntityID,
				"accepted":  ack.Accepted,
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}
	triggerCmd.Flags().StringP("namespace", "n", "default", "Namespace")
	triggerCmd.Flags().String("id", "", "Record id")
	triggerCmd.Flags().Int64("depth", 0, "Recursion depth reported with the step")
	return triggerCmd
}

// newStepRunCommand constructs the `step run` subcommand.
//
// With --max-rounds it acts as a driver loop: it re-invokes the step with
// an incremented depth until the node reports done.
func newStepRunCommand(baseURL BaseURLFunc) *cobra.Command {
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run steps synchronously until done (or --max-rounds)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ns, _ := cmd.Flags().GetString("namespace")
			id, _ := cmd.Flags().GetString("id")
			depth, _ := cmd.Flags().GetInt64("depth")
			maxRounds, _ := cmd.Flags().GetInt("max-rounds")
			if id == "" {
				return fmt.Errorf("record id is required")
			}

			t := getTransport(baseURL)
			enc := json.NewEncoder(cmd.OutOrStdout())
			for round := 0; ; round++ {
				res, err := t.RunStep(cmd.Context(), ns, id, depth)
				if err != nil {
					return err
				}
				out := map[string]interface{}{
					"entity_id":       res.EntityID,
					"done":            res.Done,
					"splits":          res.Splits,
					"split_count":     res.SplitCount,
					"segments_before": res.SegmentsBefore,
					"segments_after":  res.SegmentsAfter,
					"depth":           depth,
				}
				_ = enc.Encode(out)
				if res.Done {
					return nil
				}
				if maxRounds > 0 && round+1 >= maxRounds {
					return nil
				}
				depth++
			}
		},
	}
	runCmd.Flags().StringP("namespace", "n", "default", "Namespace")
	runCmd.Flags().String("id", "", "Record id")
	runCmd.Flags().Int64("depth", 0, "Starting recursion depth")
	runCmd.Flags().Int("max-rounds", 1, "Stop after N rounds (0 = run until done)")
	return runCmd
}

// newStepResultsCommand constructs the `step results` subcommand.
func newStepResultsCommand(baseURL BaseURLFunc) *cobra.Command {
	resultsCmd := &cobra.Command{
		Use:   "results",
		Short: "Read the step results feed",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ns, _ := cmd.Flags().GetString("namespace")
			group, _ := cmd.Flags().GetString("group")
			from, _ := cmd.Flags().GetString("from")
			startToken, _ := cmd.Flags().GetString("start-token")
			limit, _ := cmd.Flags().GetInt("limit")
			reverse, _ := cmd.Flags().GetBool("reverse")
			filter, _ := cmd.Flags().GetString("filter")
			follow, _ := cmd.Flags().GetBool("follow")
			commit, _ := cmd.Flags().GetBool("commit")

			if commit && group == "" {
				return fmt.Errorf("--commit requires --group")
			}
			if follow && (reverse || commit) {
				return fmt.Errorf("--follow cannot be combined with --reverse or --commit")
			}
			if filter != "" && !follow {
				return fmt.Errorf("--filter requires --follow")
			}

			t := getTransport(baseURL)
			if follow {
				enc := json.NewEncoder(cmd.OutOrStdout())
				return t.SubscribeResults(cmd.Context(), transports.SubscribeRequest{
					Namespace:  ns,
					Group:      group,
					From:       from,
					StartToken: startToken,
					Filter:     filter,
					Limit:      limit,
				}, func(e transports.ResultEntry) error {
					_ = enc.Encode(resultOut(e))
					return nil
				})
			}

			items, nextTok, err := t.ListResults(cmd.Context(), transports.ResultsRequest{
				Namespace:  ns,
				Group:      group,
				From:       from,
				StartToken: startToken,
				Limit:      limit,
				Reverse:    reverse,
			})
			if err != nil {
				return err
			}

			var out struct {
				Namespace string           `json:"namespace"`
				Items     []map[string]any `json:"items"`
				NextToken string           `json:"next_token,omitempty"`
				Committed string           `json:"committed,omitempty"`
			}
			out.Namespace = ns
			out.Items = make([]map[string]any, 0, len(items))
			for _, it := range items {
				out.Items = append(out.Items, resultOut(it))
			}
			out.NextToken = nextTok

			if commit && len(items) > 0 {
				last := items[len(items)-1]
				if err := t.CommitCursor(cmd.Context(), ns, group, last.Token); err != nil {
					return err
				}
				out.Committed = last.Token
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}
	resultsCmd.Flags().StringP("namespace", "n", "default", "Namespace")
	resultsCmd.Flags().StringP("group", "g", "", "Consumer group (durable cursor)")
	resultsCmd.Flags().String("from", "", "Start position: begin|end")
	resultsCmd.Flags().String("start-token", "", "Start token (base64)")
	resultsCmd.Flags().Int("limit", 100, "Max items to return (0 = infinite with --follow)")
	resultsCmd.Flags().Bool("reverse", false, "Read newest-to-oldest")
	resultsCmd.Flags().String("filter", "", "CEL filter, e.g. 'done && splits > 0' (requires --follow)")
	resultsCmd.Flags().Bool("follow", false, "Stream results live over SSE")
	resultsCmd.Flags().Bool("commit", false, "Commit the group cursor past the returned items")
	return resultsCmd
}

// newStepCursorCommand constructs the `step cursor` subcommand.
func newStepCursorCommand(baseURL BaseURLFunc) *cobra.Command {
	cursorCmd := &cobra.Command{
		Use:   "cursor",
		Short: "Read a consumer group's committed feed position",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ns, _ := cmd.Flags().GetString("namespace")
			group, _ := cmd.Flags().GetString("group")
			if group == "" {
				return fmt.Errorf("group is required")
			}

			info, err := getTransport(baseURL).GetCursor(cmd.Context(), ns, group)
			if err != nil {
				return err
			}
			out := map[string]interface{}{
				"namespace": info.Namespace,
				"group":     info.Group,
				"committed": info.Committed,
			}
			if info.Committed {
				out["token"] = info.Token
				out["seq"] = info.Seq
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}
	cursorCmd.Flags().StringP("namespace", "n", "default", "Namespace")
	cursorCmd.Flags().StringP("group", "g", "", "Consumer group")
	return cursorCmd
}

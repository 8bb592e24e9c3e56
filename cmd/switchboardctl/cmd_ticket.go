package main

import (
	"fmt"
	"net/http"
	"net/url"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ent0n29/switchboard/internal/tickets"
)

func newTicketCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ticket",
		Short: "Inspect and update support tickets",
	}
	cmd.AddCommand(newTicketGetCmd(opts), newTicketListCmd(opts), newTicketUpdateCmd(opts))
	return cmd
}

func newTicketGetCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <ticket-id>",
		Short: "Show one ticket",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var t tickets.Ticket
			if err := newAPIClient(opts).do(cmd.Context(), http.MethodGet, "/v1/tickets/"+url.PathEscape(args[0]), nil, &t); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), t)
		},
	}
}

func newTicketListCmd(opts *globalOptions) *cobra.Command {
	var (
		sessionID string
		limit     int
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List a conversation's tickets, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{"session_id": {sessionID}}
			if limit > 0 {
				q.Set("limit", fmt.Sprint(limit))
			}
			var res struct {
				Tickets []tickets.Ticket `json:"tickets"`
			}
			if err := newAPIClient(opts).do(cmd.Context(), http.MethodGet, "/v1/tickets?"+q.Encode(), nil, &res); err != nil {
				return err
			}
			if len(res.Tickets) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No tickets found.")
				return nil
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintf(w, "ID\tPriority\tStatus\tIssue\tCreated\n")
			for _, t := range res.Tickets {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", t.ID, t.Priority, t.Status, t.IssueType, t.CreatedAt.Format("2006-01-02 15:04"))
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&sessionID, "session", "", "conversation id (required)")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum tickets to return")
	_ = cmd.MarkFlagRequired("session")
	return cmd
}

func newTicketUpdateCmd(opts *globalOptions) *cobra.Command {
	var status, resolution, agent, priority string
	cmd := &cobra.Command{
		Use:   "update <ticket-id>",
		Short: "Change status, resolution, assignee or priority",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body := map[string]string{}
			flags := cmd.Flags()
			if flags.Changed("status") {
				body["status"] = status
			}
			if flags.Changed("resolution") {
				body["resolution"] = resolution
			}
			if flags.Changed("agent") {
				body["assigned_agent"] = agent
			}
			if flags.Changed("priority") {
				body["priority"] = priority
			}
			if len(body) == 0 {
				return fmt.Errorf("nothing to update: pass at least one of --status, --resolution, --agent, --priority")
			}
			var res struct {
				Ticket  tickets.Ticket `json:"ticket"`
				Changed bool           `json:"changed"`
			}
			if err := newAPIClient(opts).do(cmd.Context(), http.MethodPatch, "/v1/tickets/"+url.PathEscape(args[0]), body, &res); err != nil {
				return err
			}
			if !res.Changed {
				fmt.Fprintln(cmd.OutOrStdout(), "No changes.")
			}
			return printJSON(cmd.OutOrStdout(), res.Ticket)
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "open|in_progress|resolved|closed")
	cmd.Flags().StringVar(&resolution, "resolution", "", "resolution note")
	cmd.Flags().StringVar(&agent, "agent", "", "assigned agent")
	cmd.Flags().StringVar(&priority, "priority", "", "low|medium|high|urgent")
	return cmd
}

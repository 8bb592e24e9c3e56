package main

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ent0n29/switchboard/internal/dispatch"
)

func newChatCmd(opts *globalOptions) *cobra.Command {
	var (
		sessionID string
		email     string
		asJSON    bool
	)
	cmd := &cobra.Command{
		Use:   "chat <message>",
		Short: "Send one customer message and print the reply",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var reply dispatch.Reply
			err := newAPIClient(opts).do(cmd.Context(), http.MethodPost, "/v1/chat", map[string]string{
				"session_id":     sessionID,
				"message":        strings.Join(args, " "),
				"customer_email": email,
				"channel":        "cli",
			}, &reply)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON {
				return printJSON(out, reply)
			}
			fmt.Fprintf(out, "session:    %s\n", reply.SessionID)
			fmt.Fprintf(out, "route:      %s (%.2f, %s)\n", reply.Route, reply.Confidence, reply.ResolvedBy)
			fmt.Fprintf(out, "sentiment:  %s %.3f urgency %.3f\n", reply.Signals.Label, reply.Signals.Score, reply.Signals.UrgencyScore)
			if reply.Escalated {
				fmt.Fprintf(out, "escalated:  %s [%s] ticket %s\n", reply.EscalationReason, reply.Priority, reply.TicketID)
			}
			fmt.Fprintf(out, "\n%s\n", reply.Response)
			return nil
		},
	}
	cmd.Flags().StringVar(&sessionID, "session", "", "continue an existing conversation")
	cmd.Flags().StringVar(&email, "email", "", "customer email attached to escalations")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the raw reply")
	return cmd
}

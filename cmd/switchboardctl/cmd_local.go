package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/ent0n29/switchboard/internal/app"
	"github.com/ent0n29/switchboard/internal/config"
	"github.com/ent0n29/switchboard/internal/escalation"
	"github.com/ent0n29/switchboard/internal/logging"
	"github.com/ent0n29/switchboard/internal/routing"
)

func newScoreCmd() *cobra.Command {
	var turns int
	cmd := &cobra.Command{
		Use:   "score <text>",
		Short: "Print the signal vector and escalation decision for a message",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			v := app.Aggregator(cfg).Score(strings.Join(args, " "))
			d := escalation.NewPolicy(cfg.EscalationMaxTurns).Decide(v, turns)
			return printJSON(cmd.OutOrStdout(), map[string]any{"signals": v, "decision": d})
		},
	}
	cmd.Flags().IntVar(&turns, "turns", 1, "conversation length to evaluate the policy with")
	return cmd
}

func newResolveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <raw classifier output>",
		Short: "Resolve raw classifier output into a route and confidence",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			r := routing.NewResolver(app.Catalog(cfg), logging.Discard())
			return printJSON(cmd.OutOrStdout(), r.Resolve(strings.Join(args, " ")))
		},
	}
}

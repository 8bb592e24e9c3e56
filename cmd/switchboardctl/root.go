// switchboardctl talks to a running switchboard server and runs local diagnostics.
//
// Usage:
//
//	switchboardctl chat "where is my order?" [--session=<id>]
//	switchboardctl ticket get <ticket-id>
//	switchboardctl ticket list --session=<id>
//	switchboardctl ticket update <ticket-id> --status=resolved --resolution="refund issued"
//	switchboardctl score "this is broken!!!"
//	switchboardctl resolve "sales, 0.92"
//	switchboardctl migrate up|down|version --database-url=<url>
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags.
var version = "dev"

type globalOptions struct {
	server string
	token  string
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}
	root := &cobra.Command{
		Use:   "switchboardctl",
		Short: "Admin CLI for the switchboard customer-message router",
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
		SilenceUsage: true,
		Version:      version,
	}
	root.PersistentFlags().StringVar(&opts.server, "server", envOr("SWITCHBOARD_URL", "http://localhost:8080"), "switchboard base URL")
	root.PersistentFlags().StringVar(&opts.token, "token", os.Getenv("SWITCHBOARD_TOKEN"), "bearer token for the ticket API")

	root.AddCommand(newChatCmd(opts))
	root.AddCommand(newTicketCmd(opts))
	root.AddCommand(newScoreCmd())
	root.AddCommand(newResolveCmd())
	root.AddCommand(newMigrateCmd())
	return root
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

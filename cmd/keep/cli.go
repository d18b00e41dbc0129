package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/hpungsan/keep/internal/config"
	"github.com/hpungsan/keep/internal/errors"
	"github.com/hpungsan/keep/internal/ops"
	"github.com/hpungsan/keep/internal/web"
)

// newCLIApp creates the CLI application with all commands. The principal is
// the minted local identity; the global --as flag substitutes another
// caller, which is how multi-party flows are driven from one machine.
func newCLIApp(ledger *ops.Ledger, db *sql.DB, cfg *config.Config, principal string) *cli.App {
	app := &cli.App{
		Name:    "keep",
		Usage:   "Time-locked capsule ledger",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "as", Usage: "Act as a different principal"},
		},
		Commands: []*cli.Command{
			createCmd(ledger, principal),
			openCmd(ledger, principal),
			previewCmd(ledger, principal),
			showCmd(ledger),
			listCmd(ledger, principal),
			publicCmd(ledger),
			auditCmd(ledger),
			statsCmd(ledger),
			addFundsCmd(ledger, principal),
			updateMessageCmd(ledger, principal),
			extendCmd(ledger, principal),
			cancelCmd(ledger, principal),
			createGroupCmd(ledger, principal),
			emergencyWithdrawCmd(ledger, principal),
			depositCmd(ledger, principal),
			balanceCmd(ledger, principal),
			identityCmd(principal),
			pauseCmd(ledger, principal),
			withdrawPenaltiesCmd(ledger, principal),
			webCmd(db, ledger),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// createCmd creates the create command.
func createCmd(ledger *ops.Ledger, principal string) *cli.Command {
	return &cli.Command{
		Name:  "create",
		Usage: "Create a time-locked capsule (message from -m or stdin)",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "to", Required: true, Usage: "Recipient principal"},
			&cli.StringFlag{Name: "message", Aliases: []string{"m"}, Usage: "Message content"},
			&cli.Int64Flag{Name: "value", Usage: "Deposit to custody with the capsule"},
			&cli.Int64Flag{Name: "delay", Required: true, Usage: "Seconds until unlock"},
			&cli.StringFlag{Name: "kind", Usage: "Free-form label"},
			&cli.StringFlag{Name: "metadata", Usage: "Annotation visible before unlock"},
			&cli.BoolFlag{Name: "public", Usage: "Register in the public-viewable set"},
		},
		Action: func(c *cli.Context) error {
			payload, err := readMessage(c)
			if err != nil {
				return outputError(err)
			}

			input := ops.CreateInput{
				Caller:    caller(c, principal),
				Recipient: c.String("to"),
				Payload:   payload,
				Value:     c.Int64("value"),
				Delay:     c.Int64("delay"),
				Kind:      c.String("kind"),
				Public:    c.Bool("public"),
			}
			if metadata := c.String("metadata"); metadata != "" {
				input.Metadata = &metadata
			}

			output, err := ledger.Create(input)
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// openCmd creates the open command.
func openCmd(ledger *ops.Ledger, principal string) *cli.Command {
	return &cli.Command{
		Name:      "open",
		Usage:     "Open an unlocked capsule addressed to you",
		ArgsUsage: "<id>",
		Action: func(c *cli.Context) error {
			id, err := idArg(c)
			if err != nil {
				return outputError(err)
			}

			output, err := ledger.Open(ops.OpenInput{Caller: caller(c, principal), ID: id})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// previewCmd creates the preview command.
func previewCmd(ledger *ops.Ledger, principal string) *cli.Command {
	return &cli.Command{
		Name:      "preview",
		Usage:     "Read an unlocked capsule without consuming it",
		ArgsUsage: "<id>",
		Action: func(c *cli.Context) error {
			id, err := idArg(c)
			if err != nil {
				return outputError(err)
			}

			output, err := ledger.Preview(ops.PreviewInput{Caller: caller(c, principal), ID: id})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// showCmd creates the show command.
func showCmd(ledger *ops.Ledger) *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "Show a capsule's record fields (never the message)",
		ArgsUsage: "<id>",
		Action: func(c *cli.Context) error {
			id, err := idArg(c)
			if err != nil {
				return outputError(err)
			}

			output, err := ledger.Show(ops.ShowInput{ID: id})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// listCmd creates the list command.
func listCmd(ledger *ops.Ledger, principal string) *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List the capsules you are party to",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "principal", Aliases: []string{"p"}, Usage: "List another principal's capsules"},
			&cli.IntFlag{Name: "limit", Value: 20, Usage: "Max results"},
			&cli.IntFlag{Name: "offset", Usage: "Results to skip"},
		},
		Action: func(c *cli.Context) error {
			who := c.String("principal")
			if who == "" {
				who = caller(c, principal)
			}

			output, err := ledger.List(ops.ListInput{
				Principal: who,
				Limit:     c.Int("limit"),
				Offset:    c.Int("offset"),
			})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// publicCmd creates the public command.
func publicCmd(ledger *ops.Ledger) *cli.Command {
	return &cli.Command{
		Name:  "public",
		Usage: "List the public capsule set",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Value: 20, Usage: "Max results"},
			&cli.IntFlag{Name: "offset", Usage: "Results to skip"},
		},
		Action: func(c *cli.Context) error {
			output, err := ledger.Public(ops.PublicInput{
				Limit:  c.Int("limit"),
				Offset: c.Int("offset"),
			})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// auditCmd creates the audit command.
func auditCmd(ledger *ops.Ledger) *cli.Command {
	return &cli.Command{
		Name:      "audit",
		Usage:     "Show a capsule's most recent access event",
		ArgsUsage: "<id>",
		Action: func(c *cli.Context) error {
			id, err := idArg(c)
			if err != nil {
				return outputError(err)
			}

			output, err := ledger.Audit(ops.AuditInput{ID: id})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// statsCmd creates the stats command.
func statsCmd(ledger *ops.Ledger) *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "Report the ledger aggregates",
		Action: func(c *cli.Context) error {
			output, err := ledger.Stats()
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// addFundsCmd creates the add-funds command.
func addFundsCmd(ledger *ops.Ledger, principal string) *cli.Command {
	return &cli.Command{
		Name:      "add-funds",
		Usage:     "Top up a capsule's deposit (creator only)",
		ArgsUsage: "<id>",
		Flags: []cli.Flag{
			&cli.Int64Flag{Name: "amount", Required: true, Usage: "Amount to add"},
		},
		Action: func(c *cli.Context) error {
			id, err := idArg(c)
			if err != nil {
				return outputError(err)
			}

			output, err := ledger.AddFunds(ops.AddFundsInput{
				Caller: caller(c, principal),
				ID:     id,
				Amount: c.Int64("amount"),
			})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// updateMessageCmd creates the update-message command.
func updateMessageCmd(ledger *ops.Ledger, principal string) *cli.Command {
	return &cli.Command{
		Name:      "update-message",
		Usage:     "Rewrite a still-locked capsule's message (creator only)",
		ArgsUsage: "<id>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "message", Aliases: []string{"m"}, Usage: "New message content"},
		},
		Action: func(c *cli.Context) error {
			id, err := idArg(c)
			if err != nil {
				return outputError(err)
			}

			payload, err := readMessage(c)
			if err != nil {
				return outputError(err)
			}

			output, err := ledger.UpdateMessage(ops.UpdateMessageInput{
				Caller:  caller(c, principal),
				ID:      id,
				Payload: payload,
			})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// extendCmd creates the extend command.
func extendCmd(ledger *ops.Ledger, principal string) *cli.Command {
	return &cli.Command{
		Name:      "extend",
		Usage:     "Push a still-locked capsule's unlock time out (creator only)",
		ArgsUsage: "<id>",
		Flags: []cli.Flag{
			&cli.Int64Flag{Name: "delay", Required: true, Usage: "Seconds to add to the unlock time"},
		},
		Action: func(c *cli.Context) error {
			id, err := idArg(c)
			if err != nil {
				return outputError(err)
			}

			output, err := ledger.Extend(ops.ExtendInput{
				Caller: caller(c, principal),
				ID:     id,
				Delay:  c.Int64("delay"),
			})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// cancelCmd creates the cancel command.
func cancelCmd(ledger *ops.Ledger, principal string) *cli.Command {
	return &cli.Command{
		Name:      "cancel",
		Usage:     "Cancel a still-locked capsule for a 10% penalty (creator only)",
		ArgsUsage: "<id>",
		Action: func(c *cli.Context) error {
			id, err := idArg(c)
			if err != nil {
				return outputError(err)
			}

			output, err := ledger.Cancel(ops.CancelInput{Caller: caller(c, principal), ID: id})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// createGroupCmd creates the create-group command.
func createGroupCmd(ledger *ops.Ledger, principal string) *cli.Command {
	return &cli.Command{
		Name:  "create-group",
		Usage: "Mint one capsule per recipient with a shared message",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "to", Required: true, Usage: "Comma-separated recipient principals (max 10)"},
			&cli.StringFlag{Name: "message", Aliases: []string{"m"}, Usage: "Shared message content"},
			&cli.Int64Flag{Name: "value", Usage: "Deposit per recipient"},
			&cli.Int64Flag{Name: "delay", Required: true, Usage: "Seconds until unlock"},
			&cli.StringFlag{Name: "metadata", Usage: "Shared annotation"},
		},
		Action: func(c *cli.Context) error {
			payload, err := readMessage(c)
			if err != nil {
				return outputError(err)
			}

			input := ops.CreateGroupInput{
				Caller:     caller(c, principal),
				Recipients: splitList(c.String("to")),
				Payload:    payload,
				Value:      c.Int64("value"),
				Delay:      c.Int64("delay"),
			}
			if metadata := c.String("metadata"); metadata != "" {
				input.Metadata = &metadata
			}

			output, err := ledger.CreateGroup(input)
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// emergencyWithdrawCmd creates the emergency-withdraw command.
func emergencyWithdrawCmd(ledger *ops.Ledger, principal string) *cli.Command {
	return &cli.Command{
		Name:      "emergency-withdraw",
		Usage:     "Recover a fresh, far-future capsule's full deposit (creator only)",
		ArgsUsage: "<id>",
		Action: func(c *cli.Context) error {
			id, err := idArg(c)
			if err != nil {
				return outputError(err)
			}

			output, err := ledger.EmergencyWithdraw(ops.EmergencyWithdrawInput{
				Caller: caller(c, principal),
				ID:     id,
			})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// depositCmd creates the deposit command.
func depositCmd(ledger *ops.Ledger, principal string) *cli.Command {
	return &cli.Command{
		Name:  "deposit",
		Usage: "Credit your external account",
		Flags: []cli.Flag{
			&cli.Int64Flag{Name: "amount", Required: true, Usage: "Amount to credit"},
		},
		Action: func(c *cli.Context) error {
			output, err := ledger.Deposit(ops.DepositInput{
				Caller: caller(c, principal),
				Amount: c.Int64("amount"),
			})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// balanceCmd creates the balance command.
func balanceCmd(ledger *ops.Ledger, principal string) *cli.Command {
	return &cli.Command{
		Name:      "balance",
		Usage:     "Read an account balance",
		ArgsUsage: "[principal]",
		Action: func(c *cli.Context) error {
			who := c.Args().First()
			if who == "" {
				who = caller(c, principal)
			}

			output, err := ledger.Balance(ops.BalanceInput{Principal: who})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// identityCmd creates the identity command.
func identityCmd(principal string) *cli.Command {
	return &cli.Command{
		Name:  "identity",
		Usage: "Print the local principal",
		Action: func(c *cli.Context) error {
			return outputJSON(map[string]string{"principal": caller(c, principal)})
		},
	}
}

// pauseCmd creates the pause command.
func pauseCmd(ledger *ops.Ledger, principal string) *cli.Command {
	return &cli.Command{
		Name:  "pause",
		Usage: "Toggle the global pause flag (owner only)",
		Action: func(c *cli.Context) error {
			output, err := ledger.TogglePause(ops.TogglePauseInput{Caller: caller(c, principal)})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// withdrawPenaltiesCmd creates the withdraw-penalties command.
func withdrawPenaltiesCmd(ledger *ops.Ledger, principal string) *cli.Command {
	return &cli.Command{
		Name:  "withdraw-penalties",
		Usage: "Harvest the escrow surplus (owner only)",
		Flags: []cli.Flag{
			&cli.Int64Flag{Name: "amount", Required: true, Usage: "Amount to withdraw"},
		},
		Action: func(c *cli.Context) error {
			output, err := ledger.WithdrawPenalties(ops.WithdrawPenaltiesInput{
				Caller: caller(c, principal),
				Amount: c.Int64("amount"),
			})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// webCmd creates the web command.
func webCmd(db *sql.DB, ledger *ops.Ledger) *cli.Command {
	return &cli.Command{
		Name:  "web",
		Usage: "Serve the read-only web UI",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Value: "127.0.0.1", Usage: "Bind address"},
			&cli.IntFlag{Name: "port", Value: 8321, Usage: "Listen port"},
		},
		Action: func(c *cli.Context) error {
			srv := web.NewServer(db, ledger, Version, c.String("bind"), c.Int("port"))
			return web.Run(srv)
		},
	}
}

// Helper functions

// caller resolves the acting principal, honoring the global --as flag.
func caller(c *cli.Context, principal string) string {
	if as := c.String("as"); as != "" {
		return as
	}
	return principal
}

// idArg parses the required positional capsule id argument.
func idArg(c *cli.Context) (uint64, error) {
	s := c.Args().First()
	if s == "" {
		return 0, errors.NewInvalidRequest("capsule id is required")
	}
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil || id == 0 {
		return 0, errors.NewInvalidRequest("capsule id must be a positive integer")
	}
	return id, nil
}

// readMessage resolves message content from -m, falling back to stdin.
func readMessage(c *cli.Context) (string, error) {
	if m := c.String("message"); m != "" {
		return m, nil
	}
	if !stdinHasData() {
		return "", errors.NewInvalidRequest("message is required: pass -m or pipe via stdin")
	}
	return readStdin()
}

// splitList splits a comma-separated string into trimmed parts.
func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// outputJSON marshals result to stdout as JSON.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	if lErr, ok := err.(*errors.LedgerError); ok {
		return cli.Exit(fmt.Sprintf("[%s] %s", lErr.Code, lErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}

// stdinHasData returns true if stdin has piped data (not a terminal).
func stdinHasData() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}

// readStdin reads all content from stdin.
func readStdin() (string, error) {
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"leadbot/internal/entities"
)

var (
	askTenant  string
	askChannel string
	askFrom    string
	askTo      string
)

var askCmd = &cobra.Command{
	Use:   "ask [text...]",
	Short: "Run one message through the pipeline and print the result",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		msg := entities.CanonicalMessage{
			Channel: entities.ParseChannel(askChannel),
			From:    askFrom,
			To:      askTo,
			Text:    strings.Join(args, " "),
		}
		result := a.Service.HandleCanonical(cmd.Context(), msg, askTenant)
		printResult(cmd.OutOrStdout(), result)
		return nil
	},
}

func printResult(w io.Writer, r entities.PipelineResult) {
	fmt.Fprintf(w, "tenant:   %s\n", r.TenantID)
	fmt.Fprintf(w, "language: %s\n", r.Language)
	fmt.Fprintf(w, "reply:\n%s\n", r.Reply)

	fmt.Fprintf(w, "\ncontexts (%d):\n", len(r.Contexts))
	for i, c := range r.Contexts {
		fmt.Fprintf(w, "  [%d] %s\n", i+1, c)
	}

	if r.Lead == nil {
		fmt.Fprintln(w, "\nlead: none")
	} else {
		l := r.Lead
		fmt.Fprintf(w, "\nlead: phone=%q email=%q intent=%t source=%s\n", l.Phone, l.Email, l.Intent, l.Source)
		fmt.Fprintf(w, "      saved=%t count=%d/%d overage=%t\n", l.Saved, l.CurrentCount, l.FreeLimit, l.Overage)
	}

	fmt.Fprintf(w, "\ntiming: retrieval=%.3fs completion=%.3fs total=%.3fs\n",
		r.Timing.RetrievalSeconds, r.Timing.CompletionSeconds, r.Timing.TotalSeconds)
}

func init() {
	askCmd.Flags().StringVar(&askTenant, "tenant", "", "tenant id (resolved from the message when empty)")
	askCmd.Flags().StringVar(&askChannel, "channel", "web", "channel the message arrived on")
	askCmd.Flags().StringVar(&askFrom, "from", "", "sender address")
	askCmd.Flags().StringVar(&askTo, "to", "", "recipient address")
	rootCmd.AddCommand(askCmd)
}

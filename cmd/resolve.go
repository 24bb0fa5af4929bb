package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var (
	resolveChannel string
	resolveTo      string
	resolveFrom    string
)

var resolveCmd = &cobra.Command{
	Use:   "resolve [text...]",
	Short: "Print the tenant a message would be routed to",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, resolver := newTenancy(cfg)
		id, rule := resolver.ResolveWithRule(resolveChannel, resolveTo, resolveFrom, strings.Join(args, " "))
		fmt.Fprintf(cmd.OutOrStdout(), "%s\t(%s)\n", id, rule)
		return nil
	},
}

func init() {
	resolveCmd.Flags().StringVar(&resolveChannel, "channel", "", "channel name")
	resolveCmd.Flags().StringVar(&resolveTo, "to", "", "recipient address")
	resolveCmd.Flags().StringVar(&resolveFrom, "from", "", "sender address")
	rootCmd.AddCommand(resolveCmd)
}

package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"leadbot/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "leadbot",
	Short: "Multi-tenant answer bot with lead capture",
	Long:  "Answers customer messages from WhatsApp, Instagram, Telegram, email and the web using each tenant's knowledge base, and records qualified leads against a monthly quota.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return eris.Wrap(err, "load config")
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return eris.Wrap(err, "init logger")
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"leadbot/internal/infrastructure"
	"leadbot/internal/usecases"
)

var onboardBaseDir string

var onboardCmd = &cobra.Command{
	Use:   "onboard <tenant_id>",
	Short: "Rebuild a tenant's knowledge base collection from its kb files",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		embedder := infrastructure.NewEmbeddingClient(cfg.Embedding)
		if embedder == nil {
			return eris.New("onboard: embedding.base_url is not configured")
		}
		qdrant := infrastructure.NewQdrantClient(cfg.Qdrant)
		if qdrant == nil {
			return eris.New("onboard: qdrant.url is not configured")
		}
		tenants, _ := newTenancy(cfg)

		n, err := usecases.NewOnboarder(tenants, embedder, qdrant, onboardBaseDir).Onboard(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Indexed %d documents into %s\n", n, usecases.CollectionName(args[0]))
		return nil
	},
}

func init() {
	onboardCmd.Flags().StringVar(&onboardBaseDir, "base-dir", ".", "directory kb file paths are relative to")
	rootCmd.AddCommand(onboardCmd)
}

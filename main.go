package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"scz-inmuebles/config"
	"scz-inmuebles/utils"
)

var (
	logger *utils.Logger
	cfg    *config.Config
)

func main() {
	logger = utils.NewLogger()
	defer logger.Sync()
	cfg = config.Load()

	rootCmd := &cobra.Command{
		Use:   "inmuebles",
		Short: "Santa Cruz real-estate listings pipeline",
		Long: `Ingests provider exports of Santa Cruz de la Sierra listings, extracts structured
fields with regex and an LLM fallback, resolves duplicates across snapshots and
stores the canonical records.`,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(createRunCmd())
	rootCmd.AddCommand(createExtractCmd())
	rootCmd.AddCommand(createDedupCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

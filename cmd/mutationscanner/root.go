package main

import (
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"MutationScanner/internal/app"
	"MutationScanner/internal/config"
	"MutationScanner/internal/logging"
)

var (
	cfgFile string
	envFile string

	cfg    config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "mutationscanner",
	Short: "Extract genetic mutation mentions from PubMed abstracts",
	Long: `mutationscanner collects PubMed identifiers for a protein, fetches their
abstracts in chunks through NCBI EDirect, extracts mutation tokens such as
G1043D and stores them with per-article transactions.

Examples:
  mutationscanner migrate
  mutationscanner collect --protein CFTR
  mutationscanner run --pending 500
  mutationscanner run 31000001 31000002
  mutationscanner serve`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		if cfgFile != "" {
			if err := os.Setenv("MUTATION_SCANNER_CONFIG", cfgFile); err != nil {
				return err
			}
		}

		cfg = config.Load()
		logger = logging.NewWithFormat(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "YAML config file (default: $MUTATION_SCANNER_CONFIG)",
	)
	rootCmd.PersistentFlags().StringVar(
		&envFile, "env-file", ".env", "dotenv file loaded before configuration",
	)

	rootCmd.AddCommand(runCmd, collectCmd, watchCmd, serveCmd, extractCmd, migrateCmd)
}

func openApp(cmd *cobra.Command) (*app.Application, error) {
	return app.New(cmd.Context(), cfg, logger)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

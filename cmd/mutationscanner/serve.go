package main

import (
	"github.com/spf13/cobra"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Start the HTTP API.

Endpoints:
  GET  /healthz
  POST /api/v1/batches        {"ids": [...]} or {"pending": N}, optional "name" and "force"
  POST /api/v1/collections    {"protein": "CFTR"}
  GET  /api/v1/articles       ?status=pending&protein=CFTR&limit=100
  GET  /api/v1/articles/:pmid`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if serveAddr != "" {
			cfg.Server.Addr = serveAddr
		}

		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		return a.Serve(cmd.Context())
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default: server.addr)")
}

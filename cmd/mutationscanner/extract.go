package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"MutationScanner/internal/extractor"
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Print the mutation tokens found in text read from stdin",
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
		for _, token := range extractor.Extract(string(text)) {
			if _, err := fmt.Fprintln(cmd.OutOrStdout(), token); err != nil {
				return err
			}
		}
		return nil
	},
}

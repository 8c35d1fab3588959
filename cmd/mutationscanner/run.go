package main

import (
	"errors"

	"github.com/spf13/cobra"

	"MutationScanner/internal/usecase"
)

var (
	runPending int
	runForce   bool
)

var runCmd = &cobra.Command{
	Use:   "run [pmid...]",
	Short: "Run one extraction batch",
	Long: `Run fetches, parses and extracts the given articles, or up to --pending
articles still waiting for extraction. Articles already marked success are
skipped unless --force is set.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 && runPending <= 0 {
			return errors.New("pass article ids or --pending N")
		}

		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		ids := args
		if len(ids) == 0 {
			ids, err = usecase.PendingIDs(cmd.Context(), a.Store(), runPending)
			if err != nil {
				return err
			}
		}

		out, err := a.RunBatch(cmd.Context(), ids, runForce)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), out)
	},
}

func init() {
	runCmd.Flags().IntVar(&runPending, "pending", 0, "process up to N pending articles")
	runCmd.Flags().BoolVar(&runForce, "force", false, "reprocess articles already marked success")
}

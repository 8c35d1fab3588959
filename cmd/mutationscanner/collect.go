package main

import (
	"github.com/spf13/cobra"
)

var collectProtein string

var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Record the PubMed articles of a protein as pending",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.Collector().Collect(cmd.Context(), collectProtein)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), res)
	},
}

func init() {
	collectCmd.Flags().StringVar(&collectProtein, "protein", "", "protein name used as the search query")
	_ = collectCmd.MarkFlagRequired("protein")
}

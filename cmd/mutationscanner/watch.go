package main

import (
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Periodically process pending articles",
	Long: `Watch runs a batch over pending articles right away and then every
scheduler.interval until interrupted. All scheduled runs share one lock.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		return a.Watch(cmd.Context())
	},
}

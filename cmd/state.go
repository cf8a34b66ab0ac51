package cmd

import (
	"context"
	"encoding/json"
	"time"

	"feed-processor/feature/talos"

	"github.com/spf13/cobra"
)

// stateCmd is the parent command for state store inspection.
var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Inspect the indicator state store",
}

// stateGetCmd prints the stored entry of one indicator.
var stateGetCmd = &cobra.Command{
	Use:   "get <indicator>",
	Short: "Print the stored state of an IP address or network",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		a, err := newApp(ctx, appOptions{logFormat: "console", withoutPublisher: true})
		if err != nil {
			return err
		}
		defer a.Close()

		ind, states, err := a.service.Lookup(ctx, args[0])
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(talos.StateResponse{
			AddressID:   talos.AddressID(ind.Canonical),
			AddressType: ind.Kind,
			Feeds:       states,
		})
	},
}

func init() {
	stateCmd.AddCommand(stateGetCmd)
	RootCmd.AddCommand(stateCmd)
}

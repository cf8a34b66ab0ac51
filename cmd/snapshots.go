package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
)

// snapshotsCmd lists the archived raw feed bodies.
var snapshotsCmd = &cobra.Command{
	Use:   "snapshots",
	Short: "List archived feed snapshots, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		a, err := newApp(ctx, appOptions{logFormat: "console", withoutPublisher: true})
		if err != nil {
			return err
		}
		defer a.Close()
		if a.snapshots == nil {
			return errors.New("snapshot storage is disabled")
		}

		for _, def := range a.cfg.Feeds {
			keys, err := a.snapshots.List(ctx, def.Source, def.Name)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s/%s (%d)\n", def.Source, def.Name, len(keys))
			for _, k := range keys {
				fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", k)
			}
		}
		return nil
	},
}

func init() {
	RootCmd.AddCommand(snapshotsCmd)
}

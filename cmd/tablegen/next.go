package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newNextCmd(flags *rootFlags) *cobra.Command {
	var count int
	cmd := &cobra.Command{
		Use:   "next <entity>",
		Short: "Print the next identifiers of an entity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := newBootstrap(cmd.Context(), flags, false)
			if err != nil {
				return err
			}
			defer func() { _ = b.Close(context.Background()) }()

			if err := b.app.EnsureSchema(cmd.Context()); err != nil {
				return err
			}
			ids, err := b.app.registry.GenerateN(cmd.Context(), args[0], count)
			if err != nil {
				return err
			}
			for _, id := range ids {
				fmt.Fprintln(cmd.OutOrStdout(), id)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&count, "count", "n", 1, "number of identifiers")
	return cmd
}

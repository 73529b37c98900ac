package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCacheCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Maintain the result cache",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "clear",
			Short: "Remove every cached resolution",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				engine, err := c.open(cmd.Context())
				if err != nil {
					return err
				}
				n, err := engine.ClearCache(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "removed %d entries\n", n)
				return nil
			},
		},
		&cobra.Command{
			Use:   "sweep",
			Short: "Remove expired and unreadable entries",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				engine, err := c.open(cmd.Context())
				if err != nil {
					return err
				}
				n, err := engine.Sweep(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "swept %d entries\n", n)
				return nil
			},
		},
	)
	return cmd
}

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/Keksclan/goRawrStash/admin"
)

func pingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ping [message]",
		Short: "Check that stashd is reachable",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			msg := "ping"
			if len(args) == 1 {
				msg = args[0]
			}
			return withClient(cmd, func(ctx context.Context, c *admin.Client) error {
				start := time.Now()
				resp, err := c.Ping(ctx, msg)
				if err != nil {
					return err
				}
				serverTime := time.Unix(resp.ServerTimeUnix, 0)
				fmt.Fprintf(cmd.OutOrStdout(), "%s (rtt %s, server clock %s)\n",
					resp.Message, time.Since(start).Round(time.Microsecond), humanize.Time(serverTime))
				return nil
			})
		},
	}
}

func statsCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show entry counts per tier",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withClient(cmd, func(ctx context.Context, c *admin.Client) error {
				st, err := c.Stats(ctx)
				if err != nil {
					return err
				}
				if asJSON {
					return json.NewEncoder(cmd.OutOrStdout()).Encode(st)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "memory:  %s\ndurable: %s\n",
					humanize.Comma(int64(st.Memory)), humanize.Comma(int64(st.Durable)))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	return cmd
}

func invalidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "invalidate PATTERN",
		Short:   "Remove keys matching a glob pattern from both tiers",
		Example: "  stashctl invalidate 'jobs:*'\n  stashctl invalidate user:42",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd, func(ctx context.Context, c *admin.Client) error {
				if err := c.Invalidate(ctx, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "invalidated %q\n", args[0])
				return nil
			})
		},
	}
}

func clearCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Drop every entry in both tiers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				return fmt.Errorf("refusing to clear without --yes")
			}
			return withClient(cmd, func(ctx context.Context, c *admin.Client) error {
				if err := c.Clear(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "cache cleared")
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm clearing the cache")
	return cmd
}

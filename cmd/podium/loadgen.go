package main

import (
	"github.com/spf13/cobra"

	"github.com/okian/podium/internal/adapters/seed"
	"github.com/okian/podium/internal/loadgen"
)

func (c *cli) newLoadgenCmd() *cobra.Command {
	var (
		lc      loadgen.Config
		dataset string
	)
	cmd := &cobra.Command{
		Use:   "loadgen",
		Short: "Submit random score events to a running server and verify its leaderboard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if dataset == "" {
				dataset = c.cfg.SeedSource
			}
			src, err := seed.Open(cmd.Context(), dataset, c.s3Options())
			if err != nil {
				return err
			}
			players, err := seed.ReadPlayers(cmd.Context(), src)
			if err != nil {
				return err
			}
			for _, p := range players {
				if p.PlayerID != "" {
					lc.Players = append(lc.Players, loadgen.Player{ID: p.PlayerID, Name: p.Name})
				}
			}

			rep, err := loadgen.Run(cmd.Context(), lc)
			if err != nil {
				return err
			}
			return printJSON(cmd, rep)
		},
	}

	f := cmd.Flags()
	f.StringVar(&lc.BaseURL, "url", "http://localhost:5000", "base URL of the service")
	f.StringVar(&dataset, "dataset", "", "player dataset (path or s3://bucket/key); defaults to seed_source")
	f.IntVar(&lc.NumEvents, "events", loadgen.DefaultEvents, "number of events to submit")
	f.IntVar(&lc.TopN, "top", loadgen.DefaultTopN, "leaderboard entries to verify")
	f.IntVar(&lc.Workers, "workers", 0, "concurrent submitters (default CPU cores * 2)")
	f.DurationVar(&lc.Timeout, "timeout", loadgen.DefaultTimeout, "HTTP request timeout")
	f.DurationVar(&lc.DrainWait, "drain-wait", loadgen.DefaultDrainWait, "how long to wait for events to be applied")
	return cmd
}

package main

import (
	"context"
	"encoding/json"

	"github.com/spf13/cobra"
)

func (c *cli) settle(cmd *cobra.Command, _ []string) error {
	svc, err := c.newService(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = svc.Stop(context.WithoutCancel(cmd.Context())) }()

	rep, err := svc.RunSettlement(cmd.Context())
	if err != nil {
		return err
	}
	return printJSON(cmd, rep)
}

func (c *cli) seed(cmd *cobra.Command, _ []string) error {
	svc, err := c.newService(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = svc.Stop(context.WithoutCancel(cmd.Context())) }()

	st, err := svc.Seed(cmd.Context())
	if err != nil {
		return err
	}
	return printJSON(cmd, st)
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

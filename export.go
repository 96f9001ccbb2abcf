package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"MapReveal/internal/export"
)

func exportCmd() *cobra.Command {
	var mapUID, out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a PDF handout of what the players have seen of a map",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if mapUID == "" || out == "" {
				return fmt.Errorf("--map and --out are required")
			}
			return withEnv(func(ctx context.Context, e *env) error {
				m, err := e.store.GetMap(ctx, mapUID)
				if err != nil {
					return err
				}
				if err := export.WriteMap(e.lib, m.UID, m.DisplayName, e.cfg.PlayerFog(), out); err != nil {
					return err
				}
				e.log.Info("exported handout", "map", m.DisplayName, "path", out)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&mapUID, "map", "", "map uid")
	cmd.Flags().StringVar(&out, "out", "", "output PDF path")
	return cmd
}

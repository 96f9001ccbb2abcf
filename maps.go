package main

import (
	"context"
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"MapReveal/internal/store"
)

func mapsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "maps",
		Short: "Manage the map library",
	}
	cmd.AddCommand(mapsListCmd())
	cmd.AddCommand(mapsImportCmd())
	cmd.AddCommand(mapsRenameCmd())
	cmd.AddCommand(mapsDeleteCmd())
	cmd.AddCommand(mapsMoveCmd())
	return cmd
}

// withEnv runs fn with an opened library.
func withEnv(fn func(ctx context.Context, e *env) error) error {
	ctx := context.Background()
	e, err := openEnv(ctx)
	if err != nil {
		return err
	}
	defer e.Close(ctx)
	return fn(ctx, e)
}

func mapsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List maps in display order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(func(ctx context.Context, e *env) error {
				maps, err := e.store.ListMaps(ctx)
				if err != nil {
					return err
				}
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "#\tUID\tNAME\tCREATED")
				for _, m := range maps {
					fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", m.Order, m.UID, m.DisplayName, m.CreatedAt.Local().Format("2006-01-02 15:04"))
				}
				return w.Flush()
			})
		},
	}
}

func mapsImportCmd() *cobra.Command {
	var name, player string
	at := store.Append
	cmd := &cobra.Command{
		Use:   "import <gm-image>",
		Short: "Import a map image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(func(ctx context.Context, e *env) error {
				if name == "" {
					name = baseName(args[0])
				}
				m, err := e.lib.ImportMap(ctx, name, args[0], player, at)
				if err != nil {
					return err
				}
				cmd.Println(m.UID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name (default file name)")
	cmd.Flags().StringVar(&player, "player", "", "separate image for the players (default the GM image)")
	cmd.Flags().IntVar(&at, "at", store.Append, "list position (default last)")
	return cmd
}

func mapsRenameCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rename <uid> <name>",
		Short: "Rename a map",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(func(ctx context.Context, e *env) error {
				return e.store.RenameMap(ctx, args[0], args[1])
			})
		},
	}
}

func mapsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <uid>",
		Short: "Delete a map with its images and reveal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(func(ctx context.Context, e *env) error {
				return e.lib.DeleteMap(ctx, args[0])
			})
		},
	}
}

func mapsMoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "move <from> <to>",
		Short: "Move the map at one list position to another",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			from, to, err := positions(args[0], args[1])
			if err != nil {
				return err
			}
			return withEnv(func(ctx context.Context, e *env) error {
				return e.store.MoveMap(ctx, from, to)
			})
		},
	}
}

func positions(a, b string) (int, int, error) {
	from, err := strconv.Atoi(a)
	if err != nil {
		return 0, 0, fmt.Errorf("bad position %q", a)
	}
	to, err := strconv.Atoi(b)
	if err != nil {
		return 0, 0, fmt.Errorf("bad position %q", b)
	}
	return from, to, nil
}

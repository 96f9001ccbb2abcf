package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"MapReveal/internal/store"
)

func markersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "markers",
		Short: "Manage marker tokens",
	}
	cmd.AddCommand(markersListCmd())
	cmd.AddCommand(markersImportCmd())
	cmd.AddCommand(markersPlaceCmd())
	cmd.AddCommand(markersDeleteCmd())
	return cmd
}

func markersListCmd() *cobra.Command {
	var mapUID string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List markers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(func(ctx context.Context, e *env) error {
				var markers []store.Marker
				var err error
				if mapUID != "" {
					markers, err = e.store.ListMarkersForMap(ctx, mapUID)
				} else {
					markers, err = e.store.ListMarkers(ctx)
				}
				if err != nil {
					return err
				}
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "#\tUID\tNAME\tMAP\tX\tY\tW\tH")
				for _, m := range markers {
					fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%.0f\t%.0f\t%.0f\t%.0f\n",
						m.Order, m.UID, m.DisplayName, m.MapUID, m.X, m.Y, m.W, m.H)
				}
				return w.Flush()
			})
		},
	}
	cmd.Flags().StringVar(&mapUID, "map", "", "only markers placed on this map")
	return cmd
}

func markersImportCmd() *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "import <image>",
		Short: "Import a marker image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(func(ctx context.Context, e *env) error {
				if name == "" {
					name = baseName(args[0])
				}
				m, err := e.lib.ImportMarker(ctx, name, args[0], store.Append)
				if err != nil {
					return err
				}
				cmd.Println(m.UID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name (default file name)")
	return cmd
}

func markersPlaceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "place <marker-uid> <map-uid|-> [x y]",
		Short: "Put a marker on a map centered at x,y, or take it off with -",
		Args:  cobra.RangeArgs(2, 4),
		RunE: func(cmd *cobra.Command, args []string) error {
			mapUID := args[1]
			if mapUID == "-" {
				mapUID = ""
			}
			var x, y float64
			if len(args) == 4 {
				var err error
				if x, err = strconv.ParseFloat(args[2], 64); err != nil {
					return fmt.Errorf("bad x %q", args[2])
				}
				if y, err = strconv.ParseFloat(args[3], 64); err != nil {
					return fmt.Errorf("bad y %q", args[3])
				}
			} else if len(args) == 3 {
				return fmt.Errorf("give both x and y")
			}
			return withEnv(func(ctx context.Context, e *env) error {
				_, err := e.lib.PlaceMarker(ctx, args[0], mapUID, x, y)
				return err
			})
		},
	}
	return cmd
}

func markersDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <uid>",
		Short: "Delete a marker and its image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(func(ctx context.Context, e *env) error {
				return e.lib.DeleteMarker(ctx, args[0])
			})
		},
	}
}

func baseName(path string) string {
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}

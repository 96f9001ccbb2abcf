package main

import (
	"os"
	"strings"

	"github.com/spf13/cobra"

	mrnet "MapReveal/internal/net"
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:          "mapreveal",
		Short:        "Reveal a battle map to your players piece by piece",
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE:         runGM,
	}
	root.Version = version
	root.SetVersionTemplate("{{.Version}}\n")
	root.PersistentFlags().StringVar(&configPath, "config", "", "config file (default <user config dir>/MapReveal/mapreveal.yaml)")
	root.AddCommand(viewCmd())
	root.AddCommand(mapsCmd())
	root.AddCommand(markersCmd())
	root.AddCommand(exportCmd())
	root.AddCommand(versionCmd())

	// share links open a player display directly
	if len(os.Args) > 1 && strings.HasPrefix(os.Args[1], mrnet.LinkScheme) {
		root.SetArgs(append([]string{"view"}, os.Args[1:]...))
	}
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

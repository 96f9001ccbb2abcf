package main

import (
	"context"
	"fmt"
	"time"

	"fyne.io/fyne/v2/app"
	"github.com/spf13/cobra"

	mrnet "MapReveal/internal/net"
	"MapReveal/internal/ui"
	"MapReveal/internal/worker"
)

const appID = "io.github.mapreveal"

// runGM opens the GM and player windows.
func runGM(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	e, err := openEnv(ctx)
	if err != nil {
		return err
	}
	defer e.Close(ctx)

	pool := worker.NewPool(2, e.log)
	defer pool.Close()

	gui := ui.New(app.NewWithID(appID), e.cfg, e.lib, pool, e.log)

	if e.cfg.Network.Enabled {
		port := e.cfg.Network.Port
		hub := mrnet.NewHub(e.log)
		gui.Bridge().AddSink(hub)
		go hub.Run(ctx)
		go func() {
			if err := hub.ListenAndServe(ctx, port); err != nil {
				e.log.Error("player display server stopped", "error", err)
				gui.SetStatus("Network display unavailable")
			}
		}()
		if e.cfg.Network.Advertise {
			server, err := mrnet.Advertise(port)
			if err != nil {
				e.log.Warn("mDNS advertising failed", "error", err)
			} else {
				defer server.Shutdown()
			}
		}
		link := mrnet.ShareLink(mrnet.OutgoingIP(), port)
		e.log.Info("remote player display enabled", "link", link)
		gui.SetStatus("Share: " + link)
	}

	gui.Run()
	return nil
}

func viewCmd() *cobra.Command {
	var discover bool
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "view [mapreveal://host:port]",
		Short: "Open a player display connected to a GM over the network",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			var addr string
			switch {
			case len(args) == 1:
				if addr, err = mrnet.ParseLink(args[0]); err != nil {
					return err
				}
			case discover:
				found, err := mrnet.Browse(ctx, timeout)
				if err != nil {
					return err
				}
				if len(found) == 0 {
					return fmt.Errorf("no game master found on the network")
				}
				addr = found[0]
				logger.Info("found game master", "addr", addr, "candidates", len(found))
			default:
				return fmt.Errorf("give a share link or --discover")
			}

			dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			viewer, err := mrnet.Dial(dialCtx, addr, logger)
			if err != nil {
				return err
			}
			defer viewer.Close()

			ui.NewRemoteDisplay(cfg, logger).Run(app.NewWithID(appID+".viewer"), viewer)
			return nil
		},
	}
	cmd.Flags().BoolVar(&discover, "discover", false, "find a game master with mDNS")
	cmd.Flags().DurationVar(&timeout, "timeout", 3*time.Second, "how long to browse with --discover")
	return cmd
}

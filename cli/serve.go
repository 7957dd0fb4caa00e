package cli

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/spektr-org/opsboard/cache"
	"github.com/spektr-org/opsboard/server"
	"github.com/spektr-org/opsboard/session"
)

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the dashboard HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// flags > OPSBOARD_* env > profile
			if addr := a.v.GetString("addr"); addr != "" {
				a.cfg.Server.Addr = addr
			}
			if url := a.v.GetString("redis_url"); url != "" {
				a.cfg.Redis.URL = url
			}

			snapshots, err := cache.New(a.cfg.Redis.URL, a.cfg.CacheTTL())
			if err != nil {
				log.Printf("⚠️ Opsboard: snapshot cache disabled: %v", err)
			}
			defer snapshots.Close()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			sessions := session.NewManager(a.cfg.SessionTTL(), a.cfg.EngineOptions()...)
			return server.New(a.cfg, sessions, snapshots).Run(ctx)
		},
	}
	cmd.Flags().String("addr", "", "listen address (default from profile, :8080)")
	cmd.Flags().String("redis", "", "Redis URL for the snapshot cache, e.g. redis://localhost:6379/0")
	_ = a.v.BindPFlag("addr", cmd.Flags().Lookup("addr"))
	_ = a.v.BindPFlag("redis_url", cmd.Flags().Lookup("redis"))
	return cmd
}

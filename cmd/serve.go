package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/registree/registree/internal/config"
	"github.com/registree/registree/internal/registry"
	"github.com/registree/registree/internal/server"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the registry JSON API",
		Long:  `Serve the read-only JSON API over the configured registry storage directory.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}

			store, err := registry.NewStore(cfg.Registry.Dir,
				cfg.Registry.RegistryTTL.Std(), cfg.Registry.RepositoryTTL.Std())
			if err != nil {
				return err
			}

			srv := server.New(store)

			sigs := make(chan os.Signal, 1)
			signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
			go func() {
				sig := <-sigs
				log.Info("Received signal, shutting down", "signal", sig)
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := srv.Shutdown(ctx); err != nil {
					log.Error("Shutdown failed", "err", err)
				}
			}()

			log.Info("Starting registree API", "listen", cfg.Server.Listen, "dir", cfg.Registry.Dir)
			if err := srv.Start(cfg.Server.Listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
}

package cmd

import (
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/registree/registree/internal/api"
	"github.com/registree/registree/internal/config"
	"github.com/registree/registree/internal/tui"
)

func newBrowseCommand() *cobra.Command {
	var serverURL string

	cmd := &cobra.Command{
		Use:   "browse",
		Short: "Browse a registry in the terminal",
		Long:  `Open the terminal tree view over a running registree API server.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			if serverURL != "" {
				cfg.Client.ServerURL = serverURL
			}

			// The TUI owns the terminal, so logs go to a file or nowhere.
			logger, closeLog, err := browseLogger(cfg)
			if err != nil {
				return err
			}
			defer closeLog()

			client := api.NewClient(cfg.Client.ServerURL, cfg.Client.Timeout.Std())
			return tui.Run(client, logger)
		},
	}

	cmd.Flags().StringVar(&serverURL, "server", "", "registree API server URL (overrides config)")
	return cmd
}

func browseLogger(cfg *config.Config) (*log.Logger, func(), error) {
	if cfg.Logging.File == "" {
		return log.New(io.Discard), func() {}, nil
	}
	f, err := os.OpenFile(cfg.Logging.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, err
	}
	logger := log.NewWithOptions(f, log.Options{ReportTimestamp: true})
	if debug {
		logger.SetLevel(log.DebugLevel)
	}
	return logger, func() { f.Close() }, nil
}

package main

import (
	"log"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/mnemoai/mnemo-go-sdk/server"
)

func serveCmd(configPath *string) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the agent over WebSocket",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}

			stack, err := buildStack(cfg)
			if err != nil {
				return err
			}
			defer stack.cleanup()

			srv := &http.Server{
				Addr:              cfg.Server.Addr,
				Handler:           server.New(stack.engine).Handler(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			log.Printf("[SERVER] listening on %s", cfg.Server.Addr)
			return srv.ListenAndServe()
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides config)")
	return cmd
}

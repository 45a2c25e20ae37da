package main

import (
	"log"

	"github.com/spf13/cobra"

	"github.com/snipkit/snipkit/internal/config"
	"github.com/snipkit/snipkit/pkg/live"
)

func newServeCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the editor-host bridge",
		Long: `Starts the WebSocket bridge editor hosts connect to. Changes to
snipkit.yaml are picked up without a restart.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides snipkit.yaml)")

	return cmd
}

func runServe(addr string) error {
	cfg, reg, err := loadSetup()
	if err != nil {
		return err
	}
	if addr == "" {
		addr = cfg.Serve.Addr
	}

	server := live.NewServer(reg)

	stop, err := config.Watch(config.FileName, func(next *config.Config) {
		log.Println("🔄 Configuration changed, rebuilding registry")
		server.SetRegistry(buildRegistry(next))
	})
	if err != nil {
		log.Printf("⚠️  Config watch unavailable: %v", err)
	} else {
		defer stop()
	}

	log.Println("🚀 Starting snipkit bridge...")
	return server.ListenAndServe(addr)
}

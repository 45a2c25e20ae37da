package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/snipkit/snipkit/internal/config"
	"github.com/snipkit/snipkit/pkg/registry"
	"github.com/snipkit/snipkit/pkg/snippets/markdown"
)

var (
	version = "0.1.0"
	commit  = "dev"
	date    = "unknown"
)

func main() {
	var rootCmd = &cobra.Command{
		Use:   "snipkit",
		Short: "Snipkit - snippet template engine",
		Long: `Snipkit is a snippet-template expansion engine: textual triggers expand
into templates with numbered tab stops, choices, computed content and
restorable slots. This CLI lists and expands the built-in snippet sets,
runs an interactive playground, and serves the editor-host bridge.`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	}

	rootCmd.AddCommand(newListCommand())
	rootCmd.AddCommand(newExpandCommand())
	rootCmd.AddCommand(newPlayCommand())
	rootCmd.AddCommand(newServeCommand())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadSetup reads snipkit.yaml from the working directory and builds the
// registry it configures.
func loadSetup() (*config.Config, *registry.Registry, error) {
	cfg, err := config.Load(".")
	if err != nil {
		return nil, nil, err
	}
	return cfg, buildRegistry(cfg), nil
}

// buildRegistry registers the enabled built-in snippet sets and applies
// priority overrides.
func buildRegistry(cfg *config.Config) *registry.Registry {
	reg := registry.New()
	if cfg.FiletypeEnabled(markdown.Filetype) {
		markdown.Register(reg)
	}
	cfg.Apply(reg)
	return reg
}

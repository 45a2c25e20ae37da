package main

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/snipkit/snipkit/cmd/snipkit/internal/ui"
)

func newPlayCommand() *cobra.Command {
	var filetype string

	cmd := &cobra.Command{
		Use:   "play",
		Short: "Interactive snippet playground",
		Long: `Opens a terminal playground driving a live expansion session: type a
trigger, expand it, then edit stops, jump with Tab and cycle choices.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlay(filetype)
		},
	}

	cmd.Flags().StringVarP(&filetype, "filetype", "t", "", "Filetype to play with (overrides snipkit.yaml)")

	return cmd
}

func runPlay(filetype string) error {
	cfg, reg, err := loadSetup()
	if err != nil {
		return err
	}
	if filetype == "" {
		filetype = cfg.Play.Filetype
	}

	model := ui.NewModel(reg, filetype, cfg.Play.LinePrefix)
	if _, err := tea.NewProgram(model, tea.WithAltScreen()).Run(); err != nil {
		return fmt.Errorf("playground failed: %w", err)
	}
	return nil
}

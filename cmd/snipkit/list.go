package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newListCommand() *cobra.Command {
	var filetype string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List registered snippet triggers",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(filetype)
		},
	}

	cmd.Flags().StringVarP(&filetype, "filetype", "t", "", "Only list triggers for this filetype")

	return cmd
}

func runList(filetype string) error {
	_, reg, err := loadSetup()
	if err != nil {
		return err
	}

	filetypes := reg.Filetypes()
	if filetype != "" {
		filetypes = []string{filetype}
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "FILETYPE\tTRIGGER\tNAME\tPRIORITY\tDESCRIPTION")
	for _, ft := range filetypes {
		for _, c := range reg.Completions(ft, "") {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n", ft, c.Trigger, c.Name, c.Priority, c.Description)
		}
	}
	return w.Flush()
}

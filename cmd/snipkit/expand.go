package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/snipkit/snipkit/pkg/snippet/engine"
	"github.com/snipkit/snipkit/pkg/snippet/node"
)

func newExpandCommand() *cobra.Command {
	var showStops bool

	cmd := &cobra.Command{
		Use:   "expand <filetype> <line>",
		Short: "Expand the trigger at the end of a line and print the result",
		Long: `Matches the snippet triggers registered for a filetype against the given
line-before-cursor text, expands the winning template and prints its
default rendering, as if the session was exited without edits.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExpand(args[0], args[1], showStops)
		},
	}

	cmd.Flags().BoolVar(&showStops, "stops", false, "Also print the jump order")

	return cmd
}

func runExpand(filetype, line string, showStops bool) error {
	_, reg, err := loadSetup()
	if err != nil {
		return err
	}

	def, match, ok := reg.Lookup(filetype, line)
	if !ok {
		return fmt.Errorf("no %s trigger matches %q", filetype, line)
	}

	eng := engine.New()
	session, err := eng.Expand(def.Template, engine.ExpandOpts{})
	if err != nil {
		return err
	}
	defer session.Abort()

	fmt.Printf("trigger: %s (matched %q)\n", def.Opts.Trigger, match.Text)
	fmt.Println(session.Render())

	if showStops {
		fmt.Println("jump order:")
		for i, stop := range session.Stops() {
			fmt.Printf("  %d: %s %s\n", i, node.PathString(node.PathOf(stop)), stop.Kind)
		}
	}
	return nil
}

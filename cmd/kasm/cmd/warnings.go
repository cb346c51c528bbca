package cmd

import (
	"fmt"

	"github.com/keurnel/x86asm/internal/warnings"
	"github.com/spf13/cobra"
)

var warningsCmd = &cobra.Command{
	Use:     "warnings",
	GroupID: "file-operations",
	Short:   "List the built-in warning classes and their default state.",
	Long:    `Prints every registered warning class together with whether it is on, off, or promoted to error by default — the same table consulted while assembling.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWarnings(cmd)
	},
}

func runWarnings(cmd *cobra.Command) error {
	set := warnings.NewSet(warnings.Builtin)
	for _, name := range set.Classes() {
		state, _ := set.State(name)
		fmt.Fprintf(cmd.OutOrStdout(), "%-28s %s\n", name, stateLabel(state))
	}
	return nil
}

func stateLabel(s warnings.State) string {
	switch s {
	case warnings.On:
		return "on"
	case warnings.Error:
		return "error"
	default:
		return "off"
	}
}

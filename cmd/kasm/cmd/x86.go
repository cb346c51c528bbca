package cmd

import "github.com/spf13/cobra"

var x86Cmd = &cobra.Command{
	Use:     "x86",
	GroupID: "arch",
	Short:   "x86/x86-64 assembly operations",
	Long:    `Commands that assemble and inspect x86 and x86-64 source.`,
}

func init() {
	x86Cmd.AddGroup(&cobra.Group{
		ID:    "file-operations",
		Title: "File operations",
	})

	x86Cmd.AddCommand(assembleCmd)
	x86Cmd.AddCommand(warningsCmd)
}

package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "kasm",
	Short: "kasm is a two-pass x86 assembler",
	Long:  `kasm assembles NASM-flavored x86 source into raw machine code.`,
}

// Execute runs the root command; it is the package's single entry point,
// called from cmd/kasm/main.go.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddGroup(&cobra.Group{
		ID:    "arch",
		Title: "Architectures",
	})

	rootCmd.AddCommand(x86Cmd)
}

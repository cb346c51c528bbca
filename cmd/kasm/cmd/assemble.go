package cmd

import (
	"fmt"
	"os"

	"github.com/keurnel/x86asm/internal/assemble"
	"github.com/keurnel/x86asm/internal/lineMap"
	"github.com/spf13/cobra"
)

var (
	assembleBits int
	assembleOut  string
	assembleW    []string
)

var assembleCmd = &cobra.Command{
	Use:     "assemble <source.kasm>",
	GroupID: "file-operations",
	Short:   "Assemble a .kasm source file into raw machine code.",
	Long:    `Assemble reads a .kasm source file, runs the scan/parse/match/encode pipeline over every line, and writes the resulting bytes to the output file.`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAssemble(cmd, args[0])
	},
}

func init() {
	assembleCmd.Flags().IntVar(&assembleBits, "bits", 64, "address/operand width: 16, 32, or 64")
	assembleCmd.Flags().StringVarP(&assembleOut, "output", "o", "", "output file (defaults to <source> with .bin appended)")
	assembleCmd.Flags().StringArrayVarP(&assembleW, "warning", "w", nil, "warning control token, e.g. -w+zero-extension (repeatable)")
}

// runAssemble orchestrates the full pipeline: load the source through the
// line tracker (so a future pre-processing pass has somewhere to record
// transformations), run it through internal/assemble, write the binary
// output, and report every non-fatal diagnostic to stderr.
func runAssemble(cmd *cobra.Command, path string) error {
	tracker, err := lineMap.Track(path)
	if err != nil {
		kind := lineMap.ClassifyError(err)
		return fmt.Errorf("failed to load source [%s]: %w", kind, err)
	}

	result, err := assemble.Run(tracker.Lines(), assemble.Options{
		Bits:            assembleBits,
		File:            path,
		WarningControls: assembleW,
	})
	if err != nil {
		return fmt.Errorf("assemble: %w", err)
	}

	for _, d := range result.Diagnostics {
		fmt.Fprintln(cmd.ErrOrStderr(), d.String())
	}

	out := assembleOut
	if out == "" {
		out = path + ".bin"
	}
	if err := os.WriteFile(out, result.Bytes, 0644); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "wrote %d bytes to %s\n", len(result.Bytes), out)
	return nil
}

package cmd

import (
	"fmt"
	"os"

	"github.com/ncsvm/go-ncs/internal/stdroutines"
	"github.com/ncsvm/go-ncs/pkg/ncsvm"
	"github.com/spf13/cobra"
)

var decompileCmd = &cobra.Command{
	Use:   "decompile <file.ncs>",
	Short: "Decompile a compiled NCS script to pseudocode",
	Long: `Load a compiled NCS bytecode container, symbolically execute it,
and print the recovered function tree as readable pseudocode.

ACTION calls resolve against the standard routine table so they print by
name rather than by bare index.

Example:
  ncsvm decompile script.ncs`,
	Args: cobra.ExactArgs(1),
	RunE: decompileScript,
}

func init() {
	rootCmd.AddCommand(decompileCmd)
}

func decompileScript(_ *cobra.Command, args []string) error {
	filename := args[0]
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read file %s: %w", filename, err)
	}

	prog, err := ncsvm.Load(data)
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", filename, err)
	}

	tree := ncsvm.Decompile(prog, stdroutines.New(nil))
	fmt.Print(ncsvm.FormatDecompiled(tree))

	if len(tree.Diagnostics) > 0 && verbose {
		fmt.Fprintf(os.Stderr, "%d block(s) failed to decompile; see diagnostics above\n", len(tree.Diagnostics))
	}

	return nil
}

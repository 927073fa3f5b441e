package cmd

import (
	"fmt"
	"os"

	"github.com/ncsvm/go-ncs/pkg/ncsvm"
	"github.com/spf13/cobra"
)

var disasmCmd = &cobra.Command{
	Use:   "disasm <file.ncs>",
	Short: "Disassemble a compiled NCS script",
	Long: `Load a compiled NCS bytecode container and print its full
instruction listing.

Example:
  ncsvm disasm script.ncs`,
	Args: cobra.ExactArgs(1),
	RunE: disasmScript,
}

func init() {
	rootCmd.AddCommand(disasmCmd)
}

func disasmScript(_ *cobra.Command, args []string) error {
	filename := args[0]
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read file %s: %w", filename, err)
	}

	prog, err := ncsvm.Load(data)
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", filename, err)
	}

	fmt.Print(ncsvm.Disassemble(prog))
	return nil
}

package cmd

import (
	"fmt"
	"os"

	"github.com/ncsvm/go-ncs/internal/stdroutines"
	"github.com/ncsvm/go-ncs/pkg/ncsvm"
	"github.com/spf13/cobra"
)

var (
	runCallerID    uint32
	runTriggererID uint32
)

var runCmd = &cobra.Command{
	Use:   "run <file.ncs>",
	Short: "Run a compiled NCS script",
	Long: `Load and execute a compiled NCS bytecode container against the
standard routine table, printing its exit code.

Example:
  ncsvm run script.ncs`,
	Args: cobra.ExactArgs(1),
	RunE: runScript,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().Uint32Var(&runCallerID, "caller", 0, "caller object id supplied to the script")
	runCmd.Flags().Uint32Var(&runTriggererID, "triggerer", 0, "triggerer object id supplied to the script")
}

func runScript(_ *cobra.Command, args []string) error {
	filename := args[0]
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read file %s: %w", filename, err)
	}

	prog, err := ncsvm.Load(data)
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", filename, err)
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "Loaded %s (%d bytes)\n", filename, len(data))
	}

	routines := stdroutines.New(nil)
	ctx := &ncsvm.ExecutionContext{
		CallerID:    runCallerID,
		TriggererID: runTriggererID,
		Routines:    routines,
	}

	code, err := ncsvm.Run(prog, routines, ctx)
	if err != nil {
		return fmt.Errorf("execution failed: %w", err)
	}

	fmt.Printf("exit code: %d\n", code)
	return nil
}

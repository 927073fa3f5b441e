package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	// Version information (set by build flags)
	Version   = "0.1.0-dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "ncsvm",
	Short: "NCS bytecode VM, disassembler, and decompiler",
	Long: `ncsvm loads compiled NCS script containers and runs, disassembles,
or decompiles them.

NCS is the compiled bytecode format consumed by NWScript-derived engine
runtimes: a stack machine with a closed opcode set, an indexed ACTION
table of engine-defined routines, and a STORESTATE continuation
mechanism for deferred script callbacks.`,
	Version: Version,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(`{{with .Name}}{{printf "%%s " .}}{{end}}{{printf "version %%s" .Version}}
Commit: %s
Built:  %s
`, GitCommit, BuildDate))

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// Command ncsvm loads, runs, disassembles, and decompiles NCS bytecode
// containers from the command line.
package main

import (
	"fmt"
	"os"

	"github.com/ncsvm/go-ncs/cmd/ncsvm/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

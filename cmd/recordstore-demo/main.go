// Command recordstore-demo drives the recordstore core end to end against
// the in-memory reference Source, narrating each status transition. It
// exists to give the Source/DeferredExecutor/Record collaborator interfaces
// a runnable body.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "recordstore-demo",
	Short: "Drives the recordstore core through its reconciliation scenarios",
}

func main() {
	rootCmd.AddCommand(scenariosCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// Command tether observes and edits attributes of YAML or JSON documents.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/zoobzio/capitan"
)

var rootCmd = &cobra.Command{
	Use:   "tether",
	Short: "Observe and edit document attributes as reactive values",
	Long: `tether exposes a single attribute of a YAML or JSON document as a live value.
Watching streams every change until the document is removed.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().Bool("verbose", false, "Log lifecycle events to stderr")
	rootCmd.AddCommand(watchCmd, getCmd, setCmd)
}

func main() {
	err := rootCmd.Execute()
	capitan.Shutdown()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "imds",
	Short: "An in-memory key-value and ordered-set store",
	Long: `An in-memory key-value engine with sorted-set support over a
length-prefixed binary protocol, LRU-bounded memory and append-only
file persistence.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("couldn't execute app,", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(clientCmd)
}

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/criteo/code-id-registry/internal/cli"
)

var version = "dev"

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "codeid-registry",
	Short: "Code ID Registry Server",
	Long: `Code ID Registry Server records which code ID each chain assigned to a
(contract name, version) pair and serves lookups in both directions over a
REST API. Only the registry admin may change registrations.`,
}

func init() {
	rootCmd.AddCommand(cli.ServerCmd)
	rootCmd.AddCommand(cli.AuthCmd)

	rootCmd.SetVersionTemplate(`{{.Version}}
`)
}

func main() {
	cli.Version = version
	rootCmd.Version = version
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

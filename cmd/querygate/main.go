// Package main is the entry point for the querygate CLI.
package main

import (
	"fmt"
	"os"

	"github.com/satishbabariya/querygate/cmd/querygate/commands"
)

var (
	// Version information (set by build)
	Version = "dev"
	Commit  = "unknown"
)

func main() {
	commands.Version = Version
	commands.GitCommit = Commit

	if err := commands.NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// Package main provides the entry point for the mcckpt CLI tool.
package main

import (
	"fmt"
	"os"

	"github.com/hupe1980/mcckpt/cmd/mcckpt/commands"
)

func main() {
	if err := commands.NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// Package main provides the entry point for the better-gmc CLI.
package main

import (
	"fmt"
	"os"

	"github.com/better-dev/better-gmc/cmd/better/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

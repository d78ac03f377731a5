// Package main is the entry point for the extractmd CLI.
package main

import (
	"os"

	"github.com/jmylchreest/extractmd/cmd/extractmd/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}

// Package main is the entry point for the mapleads CLI.
package main

import (
	"os"

	"github.com/jmylchreest/mapleads/cmd/mapleads/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}

package main

import (
	"os"

	"github.com/Genius-apple/open-alpha/cmd/openalpha/commands"
)

// main is the entry point for the Open Alpha CLI
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}

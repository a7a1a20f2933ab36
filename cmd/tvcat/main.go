// Package main is the entry point for the tvcat application.
package main

import (
	"os"

	"github.com/jmylchreest/tvcat/cmd/tvcat/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

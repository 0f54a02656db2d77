// Package main is the entry point for the aihero CLI.
package main

import (
	"os"

	"github.com/AnefuIII/aihero/cmd/aihero/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

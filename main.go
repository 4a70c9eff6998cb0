package main

import (
	"os"

	"github.com/dstack-validator/updater/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

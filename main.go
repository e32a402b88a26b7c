package main

import (
	"os"

	"github.com/mediashelf/mediashelf/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

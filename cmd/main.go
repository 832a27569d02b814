package main

import (
	"os"

	"github.com/dani-ardila/secretome-annotation-pipeline-DAP/cmd/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}

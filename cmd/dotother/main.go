package main

import (
	"os"

	"github.com/yockey88/DotOther/internal/cli/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}

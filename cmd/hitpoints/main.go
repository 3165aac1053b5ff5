package main

import (
	"os"

	"github.com/hitpoints/hitpoints-service/cmd/hitpoints/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}

package main

import (
	"github.com/criteo/code-id-registry/internal/client/commands"
	"github.com/criteo/code-id-registry/internal/client/errors"
)

var version = "dev"

func main() {
	commands.Version = version
	// commands exit on their own failures; anything cobra returns is a
	// usage error (unknown command, wrong arguments, missing flag)
	if err := commands.Execute(); err != nil {
		errors.ExitWithCode(errors.ExitInvalidArguments, "")
	}
}

package main

import (
	"os"

	"github.com/funvibe/polyglot/cmd/polyglot/commands"
)

func main() {
	os.Exit(commands.Execute())
}

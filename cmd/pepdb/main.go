package main

import (
	"github.com/openproteomics/pepdb/cmd/pepdb/commands"

	// Register store backends
	_ "github.com/openproteomics/pepdb/store/memory"
)

// version is overridden during the build with the go linker
var version = "dev"

func main() {
	commands.SetVersion(version)
	commands.Execute()
}

// Package main is the entry point for the forge CLI binary.
package main

import (
	"os"

	cli "github.com/Deutsches-Klimarechenzentrum/2catalogs/pkg/cli"
)

func main() {
	os.Exit(cli.Execute())
}

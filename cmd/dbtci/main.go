// Package main is the entry point for the dbtci binary.
package main

import (
	"os"

	"dbtci/pkg/cli"
)

func main() {
	os.Exit(cli.Execute())
}

package main

import (
	"os"

	"github.com/coverline/polimport/cmd/polimport/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

package main

import (
	"os"

	"github.com/davenhart/slopwatch/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

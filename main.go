package main

import (
	"os"

	"github.com/openta/adaptive/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

package main

import (
	"os"

	"github.com/forexgate/forexgate/cmd/forexgate/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

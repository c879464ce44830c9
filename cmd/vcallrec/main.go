package main

import (
	"os"

	"github.com/synergix/vcall-recorder/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}

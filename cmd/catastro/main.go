package main

import (
	"os"
)

var Version = "dev"

func main() {
	if err := newRootCmd(&cli{}).Execute(); err != nil {
		os.Exit(1)
	}
}

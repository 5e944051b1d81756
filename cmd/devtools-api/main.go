package main

import (
	"os"
)

// preenchidos via -ldflags no build
var (
	version = "dev"
	commit  = "none"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

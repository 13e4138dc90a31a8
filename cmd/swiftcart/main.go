package main

import (
	"os"

	"github.com/swiftcart/swiftcart/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}

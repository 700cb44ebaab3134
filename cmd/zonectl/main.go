package main

import (
	"os"

	"github.com/dns-automate/zone-manager/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}

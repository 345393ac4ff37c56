package main

import (
	"os"

	"github.com/Ayodukale/S-B/cmd/swingbot/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

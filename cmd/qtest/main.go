package main

import (
	"os"

	"lab0/console"
)

func main() {
	if err := console.NewCmdQtest().Execute(); err != nil {
		os.Exit(1)
	}
}

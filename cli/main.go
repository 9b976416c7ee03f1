package main

import (
	"os"

	"github.com/vendlabs/vmhistory/cli/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

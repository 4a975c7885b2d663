package main

import (
	"os"

	"github.com/odyssey-erp/odyssey-reports/cmd/reportctl/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

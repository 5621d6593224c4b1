// Command aireport types AI stock reports into the terminal.
package main

import (
	"os"

	"github.com/charmbracelet/log"

	"github.com/dgallion1/stockreport/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		log.Error("command failed", "err", err)
		os.Exit(1)
	}
}

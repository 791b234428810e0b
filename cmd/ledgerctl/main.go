package main

import (
	"os"

	"github.com/ledgerbot/ledgerbot/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}

package main

import (
	"os"

	"github.com/pstuifzand/dtsedit/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}

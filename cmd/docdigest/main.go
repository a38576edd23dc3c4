package main

import (
	"os"

	"github.com/dgallion1/docdigest/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}

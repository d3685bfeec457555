package main

import (
	"os"

	"github.com/dshills/gatekeep/internal/cli"
)

func main() {
	os.Exit(cli.Run())
}

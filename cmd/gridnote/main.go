package main

import (
	"os"

	"gridnote/internal/ui/cli"
)

func main() {
	os.Exit(cli.Run(os.Args[1:]))
}

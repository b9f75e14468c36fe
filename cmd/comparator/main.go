package main

import (
	"context"
	"os"

	"flightsnap/cmd/comparator/commands"
)

func main() {
	os.Exit(commands.Execute(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

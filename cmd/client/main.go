package main

import (
	"fmt"
	"os"

	"greeter/internal/cli"
)

func main() {
	err := cli.NewClientCommand(os.Stdout).Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Client error: %v\n", err)
	}
	os.Exit(cli.ExitCode(err))
}

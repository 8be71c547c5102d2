package main

import (
	"fmt"
	"os"

	"greeter/internal/cli"
)

func main() {
	if err := cli.NewGatewayCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(cli.ExitCode(err))
	}
}

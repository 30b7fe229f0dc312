package main

import (
	"fmt"
	"os"

	"github.com/cronpilot/cronpilot/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "cronpilot: %v\n", err)
		os.Exit(1)
	}
}

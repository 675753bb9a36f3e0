package main

import (
	"context"
	"os"
)

const version = "0.1.0"

func main() {
	rootCmd := newRootCommand()
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

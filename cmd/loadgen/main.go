package main

import (
	"fmt"
	"os"

	"perflab/internal/loadgen"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := loadgen.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	return loadgen.Run(cfg)
}

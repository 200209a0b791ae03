package main

import (
	"os"

	"github.com/abhisek/examdiag/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

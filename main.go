package main

import (
	"os"

	"github.com/fatih/color"

	"github.com/TFMV/sift/cmd"
)

func main() {
	// A panic outside the search tasks is still reported as a failed run.
	defer func() {
		if r := recover(); r != nil {
			color.New(color.FgRed).Fprintf(os.Stderr, "sift: recovered from panic: %v\n", r)
			os.Exit(1)
		}
	}()

	if err := cmd.Execute(); err != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

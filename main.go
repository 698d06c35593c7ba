// Package main is the entry point for rawhttpd.
package main

import (
	"fmt"
	"os"

	"firestige.xyz/rawhttpd/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

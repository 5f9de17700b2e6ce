// Package main provides the gtn command-line tool for inspecting, drawing and
// combining weighted automata stored as text or .gtn files.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

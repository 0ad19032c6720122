// Command explorer prints the built-in STEM datasets and summarises publication
// CSVs from the terminal, using the same filters as the web service.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// Package main is the entry point for the hmmclass CLI.
//
// Usage:
//
//	hmmclass [flags] <command> [args]
//
// Commands:
//
//	train     - Train a classifier from a config and a dataset
//	classify  - Classify observation sequences
//	decode    - Find the most likely hidden states of a sequence
//	predict   - Forecast the observations following a sequence
//	models    - List or delete stored classifiers
package main

import (
	"fmt"
	"os"

	"github.com/unixpickle/hmm/v2/cmd/hmmclass/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

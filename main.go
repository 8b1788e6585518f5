// Package main is the entry point for the spekt CLI.
package main

import "spekt.dev/pkg/spekt/cmd"

func main() {
	cmd.Execute()
}

// Package main is the entry point for the VIOS health checker.
package main

import "viosinspect/cmd/vioshc/cmd"

func main() {
	cmd.Execute()
}

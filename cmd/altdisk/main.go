// Package main is the entry point for the alternate disk tool.
package main

import "viosinspect/cmd/altdisk/cmd"

func main() {
	cmd.Execute()
}

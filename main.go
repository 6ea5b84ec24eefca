// Package main provides a splash entry point for oocore, a cycle-driven
// out-of-order core simulator.
//
// For the full CLI, use: go run ./cmd/oocore
package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Println("oocore - cycle-driven out-of-order core simulator")
	fmt.Println("")
	fmt.Println("Usage: oocore -trace <file> [options]")
	fmt.Println("")
	fmt.Println("Options:")
	fmt.Println("  -trace       Path to the trace file to drive the core from")
	fmt.Println("  -ooo-stages  Max in-flight memory requests")
	fmt.Println("  -clock       Nominal clock period in nanoseconds (not used by the simulation)")
	fmt.Println("  -skew        Clock skew in cycles before this core starts issuing")
	fmt.Println("  -log         Path to write debug logs to")
	fmt.Println("")
	fmt.Println("Run 'go run ./cmd/oocore' for the full CLI.")

	if len(os.Args) > 1 {
		fmt.Println("\nNote: You provided arguments. Use 'go run ./cmd/oocore' instead.")
	}
}

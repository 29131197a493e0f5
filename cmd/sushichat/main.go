// Command sushichat runs the sushi ordering assistant: the chat HTTP
// service, an MCP stdio server, catalog seeding and the kitchen worker.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

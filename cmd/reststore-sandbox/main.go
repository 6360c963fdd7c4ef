// Command reststore-sandbox serves an in-memory REST resource with latency
// and failure injection, and drives any compatible endpoint through a Store.
package main

import (
	"fmt"
	"os"

	_ "github.com/joho/godotenv/autoload"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

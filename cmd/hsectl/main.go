// Command hsectl administers the HSE dashboard store: migrations,
// sign-in accounts, spreadsheet and SQL imports, and the sample dataset.
package main

import (
	"context"
	"fmt"
	"os"

	"hse/internal/cli"
)

func main() {
	cli.LoadEnvFile()
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

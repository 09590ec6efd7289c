// Package main provides the cfile CLI tool for reading, writing and
// inspecting files through any compression backend.
package main

import (
	"os"
)

func main() {
	err := rootCmd.Execute()
	if arena != nil {
		// A failed command skips the post-run hook.
		_ = arena.Close()
	}
	if err != nil {
		os.Exit(1)
	}
}

package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

var verifyCmd = &cobra.Command{
	Use:   "verify FILE...",
	Short: "Decode each file completely and report corruption",
	Long: `Verify that every FILE decodes to the end without error.

This command checks:
- Each file can be opened by its backend
- The whole stream decodes, including checksums where the format has them
- The decoded length matches the size the backend reports (warning only)`,
	Args: cobra.MinimumNArgs(1),
	RunE: runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}

func runVerify(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Verifying %d files...\n", len(args))

	var errCount int
	for i, name := range args {
		if verbose {
			fmt.Fprintf(out, "  [%d/%d] %s\n", i+1, len(args), name)
		}

		f, err := arena.Open(name, "r")
		if err != nil {
			fmt.Fprintf(out, "  ERROR: %s: %v\n", name, err)
			errCount++
			continue
		}
		n, err := io.Copy(io.Discard, f)
		size := f.Size()
		f.Close()

		switch {
		case err != nil:
			fmt.Fprintf(out, "  ERROR: %s: decode failed after %d bytes: %v\n", name, n, err)
			errCount++
		case size > 0 && size != n:
			// Multi-member gzip files only record the last member's size.
			fmt.Fprintf(out, "  WARNING: %s: decoded %d bytes, size reports %d\n", name, n, size)
		}
	}

	if errCount > 0 {
		return fmt.Errorf("%d of %d files failed verification", errCount, len(args))
	}
	fmt.Fprintln(out, "All files verified successfully.")
	return nil
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var sizeCmd = &cobra.Command{
	Use:   "size FILE...",
	Short: "Print the uncompressed size of each file",
	Long: `Print the uncompressed size of each FILE in bytes, computed the cheapest
way the format allows: the gzip trailer, the xz index, the lzop block
headers, zstd frame headers, a cached bzip2 count. A size of 0 means it
could not be determined.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSize,
}

var sizeHuman bool

func init() {
	sizeCmd.Flags().BoolVarP(&sizeHuman, "human", "H", false, "print sizes in KiB, MiB, ...")
	rootCmd.AddCommand(sizeCmd)
}

func runSize(cmd *cobra.Command, args []string) error {
	for _, name := range args {
		f, err := arena.Open(name, "r")
		if err != nil {
			return err
		}
		n := f.Size()
		f.Close()

		if sizeHuman {
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", formatBytes(n), name)
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\n", n, name)
		}
	}
	return nil
}

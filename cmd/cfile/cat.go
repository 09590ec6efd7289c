package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var catCmd = &cobra.Command{
	Use:   "cat [FILE...]",
	Short: "Copy decoded lines to the output",
	Long: `Read each FILE line by line and write the lines to the output, encoded
for the output's name. With no FILE, or when FILE is -, read standard
input.

Examples:
  # Decompress to the terminal
  cfile cat server.log.xz

  # Concatenate and recompress
  cfile cat -o all.log.gz part1.log.bz2 part2.log.zst`,
	RunE: runCat,
}

var catOutput string

func init() {
	catCmd.Flags().StringVarP(&catOutput, "output", "o", "-", "output file, - for standard output")
	rootCmd.AddCommand(catCmd)
}

func runCat(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		args = []string{"-"}
	}

	out, err := arena.Open(catOutput, "w")
	if err != nil {
		return err
	}

	var line []byte
	for _, name := range args {
		in, err := arena.Open(name, "r")
		if err != nil {
			out.Close()
			return err
		}
		for ok := true; ok; {
			if line, ok = in.ReadLine(line); ok {
				if _, err := out.Write(line); err != nil {
					in.Close()
					out.Close()
					return fmt.Errorf("writing %s: %w", catOutput, err)
				}
			}
		}
		readErr := in.Err()
		in.Close()
		if readErr != nil {
			out.Close()
			return fmt.Errorf("reading %s: %w", name, readErr)
		}
	}
	return out.Close()
}

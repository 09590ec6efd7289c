package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var convertCmd = &cobra.Command{
	Use:   "convert SRC DST",
	Short: "Re-encode a file for another backend",
	Long: `Decode SRC and write it to DST, encoded for DST's name. Either may be -.

Examples:
  cfile convert dump.sql.gz dump.sql.xz
  cfile convert - archive.bz2 < data.txt`,
	Args: cobra.ExactArgs(2),
	RunE: runConvert,
}

var convertBlockSize int

func init() {
	convertCmd.Flags().IntVar(&convertBlockSize, "block-size", 64*1024, "bytes copied per block")
	rootCmd.AddCommand(convertCmd)
}

func runConvert(cmd *cobra.Command, args []string) error {
	if convertBlockSize <= 0 {
		return fmt.Errorf("--block-size must be positive, got %d", convertBlockSize)
	}

	src, err := arena.Open(args[0], "r")
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := arena.Open(args[1], "w")
	if err != nil {
		return err
	}

	buf := make([]byte, convertBlockSize)
	var total int64
	for {
		n, err := src.ReadBlock(buf, 1, len(buf))
		if err != nil {
			dst.Close()
			return err
		}
		if n > 0 {
			if _, err := dst.WriteBlock(buf, 1, n); err != nil {
				dst.Close()
				return fmt.Errorf("writing %s: %w", args[1], err)
			}
			total += int64(n)
		}
		if n < len(buf) {
			break
		}
	}
	if err := src.Err(); err != nil {
		dst.Close()
		return fmt.Errorf("reading %s: %w", args[0], err)
	}
	if err := dst.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", args[1], err)
	}

	log.Debug("converted",
		zap.String("src", src.BackendName()),
		zap.String("dst", dst.BackendName()),
		zap.Int64("bytes", total),
	)
	return nil
}

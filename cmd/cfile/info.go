package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var infoCmd = &cobra.Command{
	Use:   "info FILE...",
	Short: "Show the backend and sizes of each file",
	Long: `Show, for each FILE, the backend that reads it, its size on disk, its
uncompressed size and the compression ratio.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runInfo,
}

var infoJSON bool

func init() {
	infoCmd.Flags().BoolVar(&infoJSON, "json", false, "output one JSON object per file")
	rootCmd.AddCommand(infoCmd)
}

type fileInfo struct {
	Name         string  `json:"name"`
	Backend      string  `json:"backend"`
	Compressed   int64   `json:"compressed_bytes"`
	Uncompressed int64   `json:"uncompressed_bytes"`
	Ratio        float64 `json:"ratio,omitempty"`
}

func runInfo(cmd *cobra.Command, args []string) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	for _, name := range args {
		fi, err := describe(name)
		if err != nil {
			return err
		}
		if infoJSON {
			if err := enc.Encode(fi); err != nil {
				return err
			}
			continue
		}

		fmt.Fprintf(cmd.OutOrStdout(), "File:         %s\n", fi.Name)
		fmt.Fprintf(cmd.OutOrStdout(), "Backend:      %s\n", fi.Backend)
		fmt.Fprintf(cmd.OutOrStdout(), "On disk:      %s\n", formatBytes(fi.Compressed))
		fmt.Fprintf(cmd.OutOrStdout(), "Uncompressed: %s\n", formatBytes(fi.Uncompressed))
		if fi.Ratio > 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "Ratio:        %.2f\n", fi.Ratio)
		}
	}
	return nil
}

func describe(name string) (fileInfo, error) {
	st, err := os.Stat(name)
	if err != nil {
		return fileInfo{}, err
	}
	f, err := arena.Open(name, "r")
	if err != nil {
		return fileInfo{}, err
	}
	defer f.Close()

	fi := fileInfo{
		Name:         name,
		Backend:      f.BackendName(),
		Compressed:   st.Size(),
		Uncompressed: f.Size(),
	}
	if fi.Compressed > 0 && fi.Uncompressed > 0 {
		fi.Ratio = float64(fi.Uncompressed) / float64(fi.Compressed)
	}
	return fi, nil
}

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Version information - set at build time via -ldflags.
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
	GoVersion = "unknown"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "izruna",
		Short: "Latvian grapheme-to-phoneme transcription engine",
		Long:  "izruna transcribes Latvian orthographic text to phonemic transcriptions, as a CLI, a library, and an HTTP/WebSocket service.",
	}

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(transcribeCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(exceptionsCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

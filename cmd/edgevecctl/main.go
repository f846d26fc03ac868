// Command edgevecctl offers offline inspection of an edgevec collection's
// on-disk snapshot and write-ahead log, independent of the library's
// runtime code paths.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "edgevecctl",
	Short: "Inspect and verify edgevec collection storage",
	Long: `edgevecctl reads a collection's snapshot and write-ahead log directly
off disk, without going through the edgevec library's runtime search or
insert paths. Useful for debugging a corrupted or unexpectedly large
collection directory.`,
}

func init() {
	// Copies a local .env file's variables into the process environment;
	// no command reads them, and every command takes the collection
	// directory as its argument. Silently ignored when no .env file is
	// present.
	_ = godotenv.Load()

	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(verifyWALCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "edgevecctl:", err)
		os.Exit(1)
	}
}

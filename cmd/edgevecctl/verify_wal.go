package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/edgevec/edgevec/internal/persist"
)

var (
	verifyWALFix bool
)

var verifyWALCmd = &cobra.Command{
	Use:   "verify-wal <collection-dir>",
	Short: "Replay a collection's write-ahead log and report any torn tail",
	Args:  cobra.ExactArgs(1),
	RunE:  runVerifyWAL,
}

func init() {
	verifyWALCmd.Flags().BoolVar(&verifyWALFix, "fix", false, "truncate the WAL at the last valid record if a torn tail is found")
}

func opName(op persist.Op) string {
	switch op {
	case persist.OpInsert:
		return "insert"
	case persist.OpDelete:
		return "delete"
	case persist.OpMetaPut:
		return "meta_put"
	case persist.OpCompactMarker:
		return "compact_marker"
	case persist.OpSnapshotMarker:
		return "snapshot_marker"
	default:
		return "unknown"
	}
}

func runVerifyWAL(cmd *cobra.Command, args []string) error {
	dir := args[0]
	walPath := filepath.Join(dir, "wal.log")

	info, err := os.Stat(walPath)
	if err != nil {
		return fmt.Errorf("no WAL found at %s: %w", walPath, err)
	}

	records, validTo, err := persist.Replay(walPath, 0)
	if err != nil {
		return fmt.Errorf("replaying WAL: %w", err)
	}

	fmt.Printf("wal: %s\n", walPath)
	fmt.Printf("  file_size:    %d bytes\n", info.Size())
	fmt.Printf("  valid_to:     %d bytes\n", validTo)
	fmt.Printf("  records:      %d\n", len(records))

	counts := map[persist.Op]int{}
	for _, r := range records {
		counts[r.Op]++
	}
	for op, n := range counts {
		fmt.Printf("    %-16s %d\n", opName(op), n)
	}

	tornBytes := info.Size() - validTo
	if tornBytes > 0 {
		fmt.Printf("torn tail detected: %d trailing bytes beyond the last valid record\n", tornBytes)
		if verifyWALFix {
			if err := persist.Truncate(walPath, validTo); err != nil {
				return fmt.Errorf("truncating WAL: %w", err)
			}
			fmt.Println("truncated WAL to the last valid record")
		} else {
			fmt.Println("rerun with --fix to truncate the torn tail")
		}
	} else {
		fmt.Println("wal is clean: no torn tail")
	}
	return nil
}

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/edgevec/edgevec/internal/persist"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <collection-dir>",
	Short: "Print a collection snapshot's header and section table",
	Args:  cobra.ExactArgs(1),
	RunE:  runInspect,
}

func metricName(b uint8) string {
	switch b {
	case 0:
		return "l2"
	case 1:
		return "cosine"
	case 2:
		return "dot"
	case 3:
		return "hamming"
	default:
		return "unknown"
	}
}

func runInspect(cmd *cobra.Command, args []string) error {
	dir := args[0]
	snapPath := filepath.Join(dir, "snapshot.evec")

	if _, err := os.Stat(snapPath); err != nil {
		return fmt.Errorf("no snapshot found at %s: %w", snapPath, err)
	}

	snap, err := persist.Read(snapPath)
	if err != nil {
		return fmt.Errorf("reading snapshot: %w", err)
	}

	h := snap.Header
	fmt.Printf("snapshot: %s\n", snapPath)
	fmt.Printf("  dimensions:  %d\n", h.Dims)
	fmt.Printf("  metric:      %s\n", metricName(h.Metric))
	fmt.Printf("  flags:       0x%02x\n", h.Flags)
	fmt.Printf("  count:       %d\n", h.Count)
	fmt.Printf("  live_count:  %d\n", h.LiveCount)
	fmt.Printf("  entry_node:  %d\n", h.EntryNode)
	fmt.Printf("  top_layer:   %d\n", h.TopLayer)
	fmt.Printf("sections (%d):\n", len(snap.Sections))
	for _, s := range snap.Sections {
		fmt.Printf("  %-12s id=%-2d bytes=%d\n", persist.SectionName(s.ID), s.ID, len(s.Payload))
	}
	return nil
}

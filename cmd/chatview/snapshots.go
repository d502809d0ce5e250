package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/ecdlabs/chatview/internal/config"
	"github.com/ecdlabs/chatview/internal/snapshot"
)

func runSnapshots(args []string) {
	fs := flag.NewFlagSet("chatview snapshots", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: chatview snapshots [flags]\n\nFlags:\n")
		fs.PrintDefaults()
	}
	prune := fs.Int("prune", 0, "Keep this many snapshots, delete the rest")
	fs.String("data-dir", "", "Snapshot data directory")
	if err := fs.Parse(args); err != nil {
		log.Fatalf("parsing flags: %v", err)
	}
	cfg, err := config.Load(fs)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	store := snapshot.NewStore(cfg.DataDir)

	if *prune > 0 {
		removed, err := store.Prune(*prune)
		if err != nil {
			log.Fatalf("pruning snapshots: %v", err)
		}
		fmt.Printf("Pruned %d snapshot(s)\n", removed)
	}

	dirs, err := store.List()
	if err != nil {
		log.Fatalf("listing snapshots: %v", err)
	}
	if len(dirs) == 0 {
		fmt.Printf("No snapshots in %s\n", store.Root())
		return
	}

	for _, dir := range dirs {
		info, err := dir.Info()
		if err != nil {
			log.Printf("warning: scanning %s: %v", dir.Name(), err)
			continue
		}
		line := fmt.Sprintf("%s  %4d sessions  %4d transcripts  %s",
			info.Name, info.Sessions, info.Bundles, formatSize(info.SizeBytes))
		if summary, err := dir.ReadSummary(); err == nil && summary != nil {
			line += fmt.Sprintf("  (fetched %s)", summary.FetchedAt.Format("2006-01-02 15:04"))
		}
		fmt.Println(line)
	}
}

func formatSize(n int64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}

package main

import (
	"errors"
	"flag"
	"fmt"
	"log"

	"github.com/ecdlabs/chatview/internal/config"
	"github.com/ecdlabs/chatview/internal/record"
	"github.com/ecdlabs/chatview/internal/report"
	"github.com/ecdlabs/chatview/internal/snapshot"
)

func runReport(args []string) {
	fs := flag.NewFlagSet("chatview report", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: chatview report [flags]\n\nFlags:\n")
		fs.PrintDefaults()
	}
	config.RegisterReportFlags(fs)
	if err := fs.Parse(args); err != nil {
		log.Fatalf("parsing flags: %v", err)
	}
	cfg, err := config.Load(fs)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	store := snapshot.NewStore(cfg.DataDir)
	dir, err := store.Latest()
	if err != nil {
		var missing *snapshot.MissingDatasetError
		if errors.As(err, &missing) {
			log.Fatalf("report: %v", err)
		}
		log.Fatalf("reading snapshots: %v", err)
	}

	rawSessions, err := dir.RawSessions()
	if err != nil {
		log.Fatalf("reading sessions: %v", err)
	}
	rawMessages, err := dir.RawMessages()
	if err != nil {
		log.Fatalf("reading messages: %v", err)
	}

	sessions, sres := record.LoadSessions(rawSessions)
	bundles, bres := record.LoadBundles(rawMessages)
	fmt.Printf("Snapshot from %s: %d sessions (%d skipped), %d transcripts (%d skipped)\n",
		dir.CreatedAt().Format("2006-01-02 15:04"), sres.Parsed, sres.Skipped, bres.Parsed, bres.Skipped)

	data, err := report.Build(dir.Name(), sessions, bundles)
	if err != nil {
		log.Fatalf("building report: %v", err)
	}
	path, err := report.WriteFile(cfg.OutputDir, data)
	if err != nil {
		log.Fatalf("writing report: %v", err)
	}
	fmt.Printf("Report written to %s\n", path)
}

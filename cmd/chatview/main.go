package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"time"
	_ "time/tzdata"

	"github.com/ecdlabs/chatview/internal/config"
	"github.com/ecdlabs/chatview/internal/server"
	"github.com/ecdlabs/chatview/internal/snapshot"
	"github.com/ecdlabs/chatview/internal/watch"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildDate = ""
)

const (
	watcherDebounce     = 500 * time.Millisecond
	browserPollInterval = 100 * time.Millisecond
	browserPollAttempts = 60
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "fetch":
			runFetch(os.Args[2:])
			return
		case "report":
			runReport(os.Args[2:])
			return
		case "serve":
			runServe(os.Args[2:])
			return
		case "snapshots":
			runSnapshots(os.Args[2:])
			return
		case "version", "--version", "-v":
			fmt.Printf("chatview %s (commit %s, built %s)\n",
				version, commit, buildDate)
			return
		case "help", "--help", "-h":
			printUsage()
			return
		}
	}

	runServe(os.Args[1:])
}

func printUsage() {
	fmt.Printf(`chatview %s - session analytics for Open Chat Studio bots

Downloads chatbot session and transcript data into timestamped local
snapshots, computes engagement/sentiment/annotation metrics, and
serves an interactive analytics dashboard.

Usage:
  chatview [flags]            Start the dashboard server (default)
  chatview serve [flags]      Start the dashboard server (explicit)
  chatview fetch [flags]      Download a fresh data snapshot
  chatview report [flags]     Generate a standalone HTML report
  chatview snapshots [flags]  List or prune local snapshots
  chatview version            Show version information
  chatview help               Show this help

Server flags:
  -host string        Host to bind to (default "127.0.0.1")
  -port int           Port to listen on (default 8080)
  -no-browser         Don't open browser on startup
  -data-dir string    Snapshot data directory

Fetch flags:
  -base-url string    API base URL
  -project string     Project ID to fetch
  -page-size int      Records per API page (default 500)
  -max-pages int      Stop after this many pages (0 = all)
  -keep int           Snapshots to keep after fetch (default 10)
  -data-dir string    Snapshot data directory

Report flags:
  -data-dir string    Snapshot data directory
  -output-dir string  Directory for generated reports

Snapshots flags:
  -prune int          Keep this many snapshots, delete the rest
  -data-dir string    Snapshot data directory

Environment variables:
  OCS_API_KEY          API key for the chat platform
  OCS_API_BASE_URL     API base URL
  OCS_PROJECT_ID       Project ID to fetch
  CHATVIEW_DATA_DIR    Snapshot data directory
  CHATVIEW_OUTPUT_DIR  Report output directory

Data is stored in ~/.chatview/ by default.
`, version)
}

func runServe(args []string) {
	fs := flag.NewFlagSet("chatview", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: chatview [serve] [flags]\n\nFlags:\n")
		fs.PrintDefaults()
	}
	config.RegisterServeFlags(fs)
	if err := fs.Parse(args); err != nil {
		log.Fatalf("parsing flags: %v", err)
	}
	cfg, err := config.Load(fs)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	store := snapshot.NewStore(cfg.DataDir)
	ds, err := server.LoadLatest(store)
	if err != nil {
		log.Fatalf("loading dataset: %v", err)
	}
	fmt.Printf("Loaded snapshot %s: %d sessions, %d message bundles\n",
		ds.Snapshot, len(ds.Sessions), len(ds.Bundles))

	port := server.FindAvailablePort(cfg.Host, cfg.Port)
	if port != cfg.Port {
		fmt.Printf("Port %d in use, using %d\n", cfg.Port, port)
	}
	cfg.Port = port

	srv := server.New(cfg, ds,
		server.WithVersion(server.VersionInfo{
			Version:   version,
			Commit:    commit,
			BuildDate: buildDate,
		}),
	)

	stopWatcher := startSnapshotWatcher(cfg, store, srv)
	defer stopWatcher()

	url := fmt.Sprintf("http://%s:%d", cfg.Host, cfg.Port)
	fmt.Printf("chatview %s listening at %s\n", version, url)

	if !cfg.NoBrowser {
		go openBrowser(url)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	case <-ctx.Done():
		fmt.Println("\nShutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("warning: shutdown: %v", err)
		}
	}
}

// startSnapshotWatcher reloads the dataset when a fetch writes a new
// snapshot under the data directory.
func startSnapshotWatcher(cfg config.Config, store *snapshot.Store, srv *server.Server) func() {
	onChange := func([]string) {
		ds, err := server.LoadLatest(store)
		if err != nil {
			log.Printf("warning: reload failed: %v", err)
			return
		}
		srv.SetDataset(ds)
	}
	watcher, err := watch.NewWatcher(watcherDebounce, onChange)
	if err != nil {
		log.Printf("warning: snapshot watcher unavailable: %v", err)
		return func() {}
	}
	if _, err := os.Stat(cfg.DataDir); err == nil {
		if err := watcher.Watch(cfg.DataDir); err != nil {
			log.Printf("warning: cannot watch %s: %v", cfg.DataDir, err)
		}
	}
	watcher.Start()
	return watcher.Stop
}

func openBrowser(url string) {
	for range browserPollAttempts {
		time.Sleep(browserPollInterval)
		resp, err := http.Get(url + "/api/v1/stats")
		if err == nil {
			resp.Body.Close()
			break
		}
	}

	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		return
	}
	if err := cmd.Start(); err != nil {
		log.Printf("warning: could not open browser: %v", err)
	}
}

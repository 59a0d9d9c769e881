// Package main re-checks stored posts and comments against the banned word
// list. By default it only reports; -delete removes offenders and writes
// the matching audit entries.
//
// Usage:
//
//	go run ./cmd/wordscan -data-path ~/Enterra/data
//	go run ./cmd/wordscan -delete
//
// The search index is left alone; stale hits are dropped at query time.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/ProtheticGlitch/Enterra/internal/config"
	"github.com/ProtheticGlitch/Enterra/internal/logger"
	"github.com/ProtheticGlitch/Enterra/internal/media"
	"github.com/ProtheticGlitch/Enterra/internal/moderation"
	"github.com/ProtheticGlitch/Enterra/internal/service"
	"github.com/ProtheticGlitch/Enterra/internal/store/sqlite"
)

var (
	deleteFlag = flag.Bool("delete", false, "Delete offending posts and comments instead of only reporting them")
	jsonFlag   = flag.Bool("json", false, "Print the report as JSON")
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{
		Level:       logger.ParseLevel(cfg.Logger.Level),
		Environment: cfg.App.Environment,
		Writer:      os.Stderr,
	})

	st, err := sqlite.Open(cfg.Data.DatabasePath(), log.Component("store"))
	if err != nil {
		log.Fatal("failed to open database", "path", cfg.Data.DatabasePath(), "error", err)
	}
	defer st.Close()

	uploads, err := media.NewStorage(cfg.Data.UploadsPath(), 0)
	if err != nil {
		log.Fatal("failed to open uploads", "error", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	gate := moderation.NewGate(st, moderation.NewWordList(), log.Component("moderation"))
	moderationSvc := service.NewModerationService(st, gate, uploads, nil, log.Component("moderation"))

	seed, err := service.ReadWordsFile(cfg.Moderation.BannedWordsFile)
	if err != nil {
		log.Fatal("failed to read banned words file", "error", err)
	}
	if err := moderationSvc.LoadBannedWords(ctx, seed); err != nil {
		log.Fatal("failed to load banned words", "error", err)
	}

	scanner := service.NewScanService(st, gate.Words(), uploads, nil, log.Component("scan"))
	report, err := scanner.Scan(ctx, *deleteFlag)
	if err != nil {
		log.Fatal("scan failed", "error", err)
	}

	if *jsonFlag {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			log.Fatal("failed to write report", "error", err)
		}
		return
	}
	printReport(report)
}

func printReport(r *service.ScanReport) {
	verb := "Found"
	if r.Deleted {
		verb = "Deleted"
	}

	fmt.Printf("=== Banned Word Scan ===\n")
	fmt.Printf("Words:    %d\n", r.Words)
	fmt.Printf("Checked:  %d posts, %d comments\n", r.PostsChecked, r.CommentsChecked)
	fmt.Printf("%s:    %d posts, %d comments\n", verb, len(r.Posts), len(r.Comments))

	if len(r.Posts) > 0 {
		fmt.Println()
		fmt.Println("Posts:")
		for _, p := range r.Posts {
			fmt.Printf("  %s  %-40.40s  by %s\n", p.ID, p.Title, p.AuthorID)
		}
	}
	if len(r.Comments) > 0 {
		fmt.Println()
		fmt.Println("Comments:")
		for _, c := range r.Comments {
			fmt.Printf("  %s  on %s  by %s\n", c.ID, c.PostID, c.AuthorID)
		}
	}
}

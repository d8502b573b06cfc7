// Command narrationgen records one clip per lesson step through the speech provider so the
// TUI can play them without a live synthesis round trip.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/multierr"

	"github.com/DaanHessen/basis-tower/internal/lesson"
	"github.com/DaanHessen/basis-tower/internal/narration"
	"github.com/DaanHessen/basis-tower/internal/synth"
	"github.com/DaanHessen/basis-tower/internal/util"
)

// lineJoin gives the provider a short pause between narration lines.
const lineJoin = " ... "

func main() {
	_ = godotenv.Load()

	cfg, err := util.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}
	flag.StringVar(&cfg.ContentPath, "content", cfg.ContentPath, "Step content YAML (default: built-in lesson)")
	flag.StringVar(&cfg.ClipDir, "out", cfg.ClipDir, "Output directory")
	flag.StringVar(&cfg.UpstreamURL, "upstream", cfg.UpstreamURL, "Speech provider URL")
	force := flag.Bool("force", false, "Overwrite existing clips")
	flag.Parse()

	var steps *lesson.Store
	if cfg.ContentPath == "" {
		steps, err = lesson.Default()
	} else {
		steps, err = lesson.LoadFile(cfg.ContentPath)
	}
	if err != nil {
		log.Fatal(err)
	}
	if err := os.MkdirAll(cfg.ClipDir, 0o755); err != nil {
		log.Fatal(err)
	}

	upstream := synth.NewUpstream(cfg.UpstreamURL, cfg.UpstreamAPIKey)
	existing := narration.DirClips(cfg.ClipDir)
	var errs error
	for i := 0; i < steps.Count(); i++ {
		st, _ := steps.Get(i)
		if _, err := existing.Load(st.ID); err == nil && !*force {
			fmt.Printf("step %d: clip exists, skipping\n", st.ID)
			continue
		}
		path, err := record(upstream, strings.Join(st.Narration, lineJoin), cfg.ClipDir, st.ID)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("step %d: %w", st.ID, err))
			continue
		}
		fmt.Printf("step %d: wrote %s\n", st.ID, path)
	}
	if errs != nil {
		log.Fatal(errs)
	}
}

// record fetches without the interactive length cap since step narration is authored content.
// The file extension follows the returned content type so the player decodes it correctly.
func record(u *synth.Upstream, text, dir string, stepID int) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	data, contentType, err := u.Fetch(ctx, text)
	if err != nil {
		return "", err
	}
	ext, err := narration.ClipExt(contentType)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, narration.ClipName(stepID)+ext)
	return path, os.WriteFile(path, data, 0o644)
}

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/DaanHessen/basis-tower/internal/clock"
	"github.com/DaanHessen/basis-tower/internal/lesson"
	"github.com/DaanHessen/basis-tower/internal/narration"
	"github.com/DaanHessen/basis-tower/internal/narration/ebitenplayer"
	"github.com/DaanHessen/basis-tower/internal/orchestrator"
	"github.com/DaanHessen/basis-tower/internal/prefs"
	"github.com/DaanHessen/basis-tower/internal/store"
	"github.com/DaanHessen/basis-tower/internal/synth"
	"github.com/DaanHessen/basis-tower/internal/ui"
	"github.com/DaanHessen/basis-tower/internal/util"
)

var version = "0.1.0"

func main() {
	// Load .env file if it exists (ignore error if file doesn't exist)
	_ = godotenv.Load()

	cfg, err := util.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	flag.StringVar(&cfg.DSN, "dsn", cfg.DSN, "PostgreSQL DSN for preferences (optional)")
	flag.StringVar(&cfg.ContentPath, "content", cfg.ContentPath, "Step content YAML (default: built-in lesson)")
	flag.StringVar(&cfg.ClipDir, "clips", cfg.ClipDir, "Directory of recorded step clips")
	flag.StringVar(&cfg.TTSURL, "tts", cfg.TTSURL, "Synthesis endpoint for dynamic narration")
	flag.StringVar(&cfg.Theme, "theme", cfg.Theme, "Color theme")
	flag.StringVar(&cfg.Profile, "profile", cfg.Profile, "Preference profile")
	flag.BoolVar(&cfg.NoAudio, "no-audio", cfg.NoAudio, "Disable all narration audio")
	flag.BoolVar(&cfg.Debug, "debug", cfg.Debug, "Debug logging")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "basistower [--content FILE] [--dsn DSN] [--clips DIR] [--tts URL] [--theme NAME] [--no-audio] | migrate up|down|version | check [FILE] | version\n")
	}
	flag.Parse()

	args := flag.Args()
	if len(args) > 0 {
		switch args[0] {
		case "version":
			fmt.Println("basistower", version)
			return
		case "check":
			path := cfg.ContentPath
			if len(args) > 1 {
				path = args[1]
			}
			steps, err := loadSteps(path)
			if err != nil {
				log.Fatal(err)
			}
			fmt.Printf("%d steps ok, tower scale reference %.0f\n", steps.Count(), steps.ReferenceMax())
			return
		case "migrate":
			if len(args) < 2 {
				log.Fatal("migrate requires 'up', 'down' or 'version'")
			}
			if cfg.DSN == "" {
				log.Fatal("migrate requires --dsn or DATABASE_URL")
			}
			if err := runMigrate(cfg.DSN, args[1]); err != nil {
				log.Fatal(err)
			}
			return
		default:
			flag.Usage()
			os.Exit(2)
		}
	}

	logger, err := util.NewLogger(cfg.LogPath, cfg.Debug)
	if err != nil {
		log.Fatalf("failed to open log: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	steps, err := loadSteps(cfg.ContentPath)
	if err != nil {
		log.Fatalf("failed to load lesson: %v", err)
	}

	mute, closeStore, err := openPrefs(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("failed to open preferences: %v", err)
	}
	defer closeStore()

	sched := clock.New()
	channel := narration.NewChannel(sched, audioConfig(cfg, logger))
	orch := orchestrator.New(orchestrator.Config{
		Steps:  steps,
		Sched:  sched,
		Audio:  channel,
		Prefs:  mute,
		Logger: logger.Named("lesson"),
	})

	logger.Info("starting", zap.String("version", version), zap.Int("steps", steps.Count()), zap.Bool("audio", !cfg.NoAudio))
	if err := ui.Run(ctx, sched, orch, logger.Named("ui"), cfg.Theme, version); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal(err)
	}
}

func loadSteps(path string) (*lesson.Store, error) {
	if path == "" {
		return lesson.Default()
	}
	return lesson.LoadFile(path)
}

func runMigrate(dsn, action string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	migrator, err := store.NewMigrator(dsn)
	if err != nil {
		return err
	}
	switch action {
	case "up":
		if err := migrator.Up(ctx); err != nil && err != store.ErrNoChange {
			return err
		}
		fmt.Println("Migrations applied")
	case "down":
		if err := migrator.Down(ctx); err != nil && err != store.ErrNoChange {
			return err
		}
		fmt.Println("Migrations rolled back")
	case "version":
		v, dirty, err := migrator.Version(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("schema version %d (dirty=%v)\n", v, dirty)
	default:
		return fmt.Errorf("unknown migrate action %q; use up|down|version", action)
	}
	return nil
}

// openPrefs backs the mute preference with Postgres when a DSN is configured and with the
// local data directory otherwise.
func openPrefs(ctx context.Context, cfg util.Config, logger *zap.Logger) (prefs.MuteStore, func(), error) {
	if cfg.DSN == "" {
		return prefs.OpenLocalOrMemory(prefs.AppName, logger.Named("prefs")), func() {}, nil
	}

	mig, err := store.NewMigrator(cfg.DSN)
	if err != nil {
		return nil, func() {}, fmt.Errorf("migrations init failed: %w", err)
	}
	migCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := mig.Up(migCtx); err != nil && err != store.ErrNoChange {
		return nil, func() {}, fmt.Errorf("migrations failed: %w", err)
	}

	db, err := store.Open(ctx, cfg)
	if err != nil {
		return nil, func() {}, err
	}
	logger.Info("preferences in postgres", zap.String("profile", cfg.Profile))
	closeDB := func() {
		if err := db.Close(); err != nil {
			logger.Warn("close database", zap.Error(err))
		}
	}
	return store.NewMuteStore(store.NewPreferenceRepo(db), cfg.Profile), closeDB, nil
}

func audioConfig(cfg util.Config, logger *zap.Logger) narration.Config {
	out := narration.Config{Logger: logger.Named("narration")}
	if cfg.NoAudio {
		return out
	}
	out.Clips = narration.DirClips(cfg.ClipDir)
	out.Player = ebitenplayer.New(ebitenplayer.DefaultSampleRate)
	if cfg.TTSURL != "" {
		out.Synth = synth.NewClient(cfg.TTSURL)
	}
	if sp := narration.LocalSpeaker(); sp != nil {
		out.Speaker = sp
	}
	return out
}

package util

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config holds runtime settings. Env vars fill it first, flags override.
type Config struct {
	DSN         string `env:"DATABASE_URL"`
	Profile     string `env:"BASIS_PROFILE"      envDefault:"default"`
	ContentPath string `env:"BASIS_CONTENT"`
	ClipDir     string `env:"BASIS_CLIP_DIR"     envDefault:"audio"`
	TTSURL      string `env:"BASIS_TTS_URL"      envDefault:"http://localhost:8087/api/tts"`
	Theme       string `env:"BASIS_THEME"        envDefault:"ledger"`
	LogPath     string `env:"BASIS_LOG"          envDefault:"basistower.log"`
	Debug       bool   `env:"BASIS_DEBUG"`
	NoAudio     bool   `env:"BASIS_NO_AUDIO"`

	ProxyAddr      string `env:"BASIS_PROXY_ADDR"  envDefault:":8087"`
	UpstreamURL    string `env:"TTS_API_URL"`
	UpstreamAPIKey string `env:"TTS_API_KEY"`
}

// LoadConfig parses the environment into a Config with defaults applied.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

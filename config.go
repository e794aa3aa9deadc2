package frames2mod

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds the environment driven settings of the frames2mod tools.
type Config struct {
	Texconv    string `env:"FRAMES2MOD_TEXCONV" envDefault:"texconv.exe"`
	Format     string `env:"FRAMES2MOD_FORMAT" envDefault:"bc7"`
	GPU        int    `env:"FRAMES2MOD_GPU" envDefault:"1"`
	MaxBatch   int    `env:"FRAMES2MOD_MAX_BATCH" envDefault:"256"`
	ScratchDir string `env:"FRAMES2MOD_SCRATCH_DIR"`
	HashesFile string `env:"FRAMES2MOD_HASHES" envDefault:"UI_Hashes.txt"`
	MediaDir   string `env:"FRAMES2MOD_MEDIA_DIR" envDefault:"media"`
	StateFile  string `env:"FRAMES2MOD_STATE" envDefault:"frames2mod.yaml"`
	Workers    int    `env:"FRAMES2MOD_WORKERS" envDefault:"1"`
}

// LoadConfig loads the optional .env files, then parses the environment.
// Variables already set in the environment win over .env files.
func LoadConfig(envFiles ...string) (Config, error) {
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return Config{}, fmt.Errorf("godotenv.Load %q failed: %w", f, err)
		}
	}
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.MaxBatch < 1 {
		return Config{}, fmt.Errorf("FRAMES2MOD_MAX_BATCH must be at least 1, not %d", cfg.MaxBatch)
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	return cfg, nil
}

// Options returns the Assembler options for cfg.
func (cfg Config) Options(quiet, verbose bool) Options {
	return Options{
		Quiet:      quiet,
		Verbose:    verbose,
		ScratchDir: cfg.ScratchDir,
		MaxBatch:   cfg.MaxBatch,
	}
}

// Codec returns the texconv codec for cfg.
func (cfg Config) Codec(verbose bool) (*Texconv, error) {
	t, err := NewTexconv(cfg.Texconv, cfg.Format, cfg.GPU)
	if err != nil {
		return nil, err
	}
	t.Verbose = verbose
	return t, nil
}

package ops

import (
	"encoding/json"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/yanun0323/errors"

	"github.com/Daboss57/wallstreet-sub000/internal/market"
)

const (
	defaultTickInterval  = time.Second
	defaultRegimeReview  = 90 * time.Second
	defaultFlushEvery    = 5
	defaultQueueCapacity = 1024
	defaultInitialCash   = 100_000
)

// FileConfig mirrors the JSON config layout. Every field is optional;
// omitted sections fall back to the built-in universe and defaults.
type FileConfig struct {
	Instruments     []market.Instrument `json:"instruments"`
	Process         *market.Config      `json:"process"`
	TickIntervalMs  int                 `json:"tickIntervalMs"`
	RegimeReviewSec int                 `json:"regimeReviewSec"`
	FlushEvery      int                 `json:"flushEvery"`
	QueueCapacity   int                 `json:"queueCapacity"`
	Realism         *bool               `json:"realism"`
	InitialCash     float64             `json:"initialCash"`
	Seed            int64               `json:"seed"`
}

// Env captures environment overrides. The DSN selects the postgres
// gateway; without it the simulator runs on in-memory storage.
type Env struct {
	PostgresDSN   string `envconfig:"EXCHANGE_POSTGRES_DSN"`
	Realism       *bool  `envconfig:"EXCHANGE_REALISM"`
	PyroscopeURL  string `envconfig:"EXCHANGE_PYROSCOPE_URL"`
	PyroscopeName string `envconfig:"EXCHANGE_PYROSCOPE_NAME" default:"wallstreet-exchange"`
}

// Loaded is the resolved configuration ready for use.
type Loaded struct {
	Universe     *market.Universe
	Process      market.Config
	TickInterval time.Duration
	RegimeReview time.Duration
	FlushEvery   int
	QueueCap     int
	Realism      bool
	InitialCash  float64
	Seed         int64
	Env          Env
}

// Load reads an optional JSON config file, applies environment
// overrides and resolves everything to runtime values. An empty path
// loads pure defaults.
func Load(path string) (Loaded, error) {
	var cfg FileConfig
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Loaded{}, errors.Wrap(err, "read config file")
		}
		if err := json.Unmarshal(data, &cfg); err != nil {
			return Loaded{}, errors.Wrap(err, "parse config file")
		}
	}

	var env Env
	if err := envconfig.Process("", &env); err != nil {
		return Loaded{}, errors.Wrap(err, "process environment")
	}

	universe, err := buildUniverse(cfg.Instruments)
	if err != nil {
		return Loaded{}, err
	}

	process := market.DefaultConfig()
	if cfg.Process != nil {
		process = *cfg.Process
	}

	loaded := Loaded{
		Universe:     universe,
		Process:      process,
		TickInterval: defaultTickInterval,
		RegimeReview: defaultRegimeReview,
		FlushEvery:   defaultFlushEvery,
		QueueCap:     defaultQueueCapacity,
		Realism:      true,
		InitialCash:  defaultInitialCash,
		Seed:         cfg.Seed,
		Env:          env,
	}
	if cfg.TickIntervalMs > 0 {
		loaded.TickInterval = time.Duration(cfg.TickIntervalMs) * time.Millisecond
	}
	if cfg.RegimeReviewSec > 0 {
		loaded.RegimeReview = time.Duration(cfg.RegimeReviewSec) * time.Second
	}
	if cfg.FlushEvery > 0 {
		loaded.FlushEvery = cfg.FlushEvery
	}
	if cfg.QueueCapacity > 0 {
		loaded.QueueCap = cfg.QueueCapacity
	}
	if cfg.Realism != nil {
		loaded.Realism = *cfg.Realism
	}
	if env.Realism != nil {
		loaded.Realism = *env.Realism
	}
	if cfg.InitialCash > 0 {
		loaded.InitialCash = cfg.InitialCash
	}
	return loaded, nil
}

func buildUniverse(instruments []market.Instrument) (*market.Universe, error) {
	if len(instruments) == 0 {
		instruments = market.DefaultUniverse()
	}
	universe, err := market.NewUniverse(instruments)
	if err != nil {
		return nil, errors.Wrap(err, "build universe")
	}
	return universe, nil
}

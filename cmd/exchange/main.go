package main

import (
	"context"
	"flag"
	"log"

	pyroscope "github.com/grafana/pyroscope-go"
	"github.com/joho/godotenv"
	"github.com/yanun0323/logs"

	"github.com/Daboss57/wallstreet-sub000/internal/bus"
	"github.com/Daboss57/wallstreet-sub000/internal/engine"
	"github.com/Daboss57/wallstreet-sub000/internal/obs"
	"github.com/Daboss57/wallstreet-sub000/internal/ops"
	"github.com/Daboss57/wallstreet-sub000/internal/store"
	"github.com/Daboss57/wallstreet-sub000/pkg/conn"
)

func main() {
	configPath := flag.String("config", "", "Path to JSON config (empty = built-in universe)")
	logFills := flag.Bool("log-fills", true, "Log every fill event")
	flag.Parse()

	// Missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	loaded, err := ops.Load(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	if loaded.Env.PyroscopeURL != "" {
		profiler, err := pyroscope.Start(pyroscope.Config{
			ApplicationName: loaded.Env.PyroscopeName,
			ServerAddress:   loaded.Env.PyroscopeURL,
			ProfileTypes: []pyroscope.ProfileType{
				pyroscope.ProfileCPU,
				pyroscope.ProfileAllocObjects,
				pyroscope.ProfileAllocSpace,
				pyroscope.ProfileInuseObjects,
				pyroscope.ProfileInuseSpace,
			},
		})
		if err != nil {
			log.Fatalf("pyroscope start failed: %v", err)
		}
		defer func() { _ = profiler.Stop() }()
	}

	gw, closeFn, err := buildGateway(loaded)
	if err != nil {
		log.Fatalf("storage init failed: %v", err)
	}
	defer closeFn()

	metrics := obs.NewMetrics()
	eng := engine.New(loaded, gw, metrics)

	ctx := context.Background()
	go eng.Queue().Run(ctx, func(e bus.Event) {
		if e.Type == bus.EventFill && *logFills {
			logs.Infof("fill: %s %s %s qty=%s price=%s quality=%.1f",
				e.Fill.UserID, e.Fill.Side, e.Fill.Ticker,
				e.Fill.Qty, e.Fill.Price, e.Fill.QualityScore)
		}
	})

	if err := eng.Run(ctx); err != nil {
		log.Fatalf("engine exited: %v", err)
	}
}

func buildGateway(loaded ops.Loaded) (store.Gateway, func(), error) {
	if loaded.Env.PostgresDSN == "" {
		logs.Warn("no postgres DSN configured, running on in-memory storage")
		return store.NewMemory(), func() {}, nil
	}

	client, err := conn.NewFromDSN(loaded.Env.PostgresDSN)
	if err != nil {
		return nil, nil, err
	}
	gw, err := store.NewGorm(client.DB())
	if err != nil {
		client.Close()
		return nil, nil, err
	}
	return gw, func() { _ = client.Close() }, nil
}

package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	persistlog "immortal.idle/internal/persistence/log"
	"immortal.idle/internal/persistence/indexdb"
	"immortal.idle/internal/persistence/snapshot"
	"immortal.idle/internal/sim/activity"
	"immortal.idle/internal/sim/catalogs"
	"immortal.idle/internal/sim/character"
	"immortal.idle/internal/sim/collab"
	"immortal.idle/internal/sim/progression"
	"immortal.idle/internal/sim/runtime"
	"immortal.idle/internal/sim/tuning"
	"immortal.idle/internal/transport/observer"
)

func main() {
	logger := log.New(os.Stdout, "[idle] ", log.LstdFlags|log.Lmicroseconds)

	cfg, err := parseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		logger.Fatalf("config: %v", err)
	}

	tune, err := tuning.Load(filepath.Join(cfg.ConfigDir, "tuning.yaml"))
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logger.Fatalf("load tuning: %v", err)
		}
		logger.Printf("tuning not found in %s; using defaults", cfg.ConfigDir)
		tune = tuning.Defaults()
	}
	if cfg.Mode != "" {
		tune.Mode = cfg.Mode
	}
	mode, err := activity.ParseMode(tune.Mode)
	if err != nil {
		logger.Fatalf("mode: %v", err)
	}

	cats, err := loadCatalogs(cfg.Activities)
	if err != nil {
		logger.Fatalf("load catalogs: %v", err)
	}

	c := character.New()
	set := collab.NewSet()
	if cfg.Verbose {
		set.Log.Forward = func(m collab.Message) { logger.Printf("[%s] %s", m.Category, m.Text) }
	}
	eng, err := progression.New(progression.Config{
		Mode:                    mode,
		StartingApprenticeships: tune.StartingApprenticeships,
		ResetFastForwardPasses:  tune.ResetFastForwardPasses,
		AutoRestart:             tune.AutoRestart,
		PauseOnDeath:            tune.PauseOnDeath,
	}, cats, set.Env(c))
	if err != nil {
		logger.Fatalf("engine: %v", err)
	}

	// Optional: read-model index. The audit log and saves are authoritative.
	var idx *indexdb.SQLiteIndex
	if !cfg.DisableDB {
		idx, err = indexdb.OpenSQLite(filepath.Join(cfg.DataDir, "index", "idle.sqlite"))
		if err != nil {
			logger.Fatalf("open index: %v", err)
		}
		defer idx.Close()
		if err := idx.UpsertCatalogs(cats, tune); err != nil {
			logger.Printf("index: upsert catalogs: %v", err)
		}
	}
	auditLog := persistlog.NewAuditLogger(cfg.DataDir)
	defer auditLog.Close()
	eng.SetAuditSink(progression.Sinks{auditLog, idx})

	rt := runtime.New(runtime.Config{
		TickRateHz:         tune.TickRateHz,
		LongTickEvery:      tune.LongTickEvery,
		SaveEveryLongTicks: tune.SaveEveryLongTicks,
	}, eng, c, set, logger)

	saveDir := filepath.Join(cfg.DataDir, "saves")
	if !cfg.Fresh {
		path, err := snapshot.LatestSave(saveDir)
		if err != nil {
			logger.Fatalf("list saves: %v", err)
		}
		if path != "" {
			sv, err := snapshot.ReadSave(path)
			if err != nil {
				logger.Fatalf("read save: %v", err)
			}
			if err := rt.Restore(sv); err != nil {
				logger.Fatalf("restore save: %v", err)
			}
			logger.Printf("resumed from save=%s tick=%d lifetime=%s", filepath.Base(path), sv.Header.Tick, sv.Header.Lifetime)
		}
	}
	idx.RecordLifetime(eng.LifetimeID(), string(eng.Mode()), eng.LongTicks())

	if strings.TrimSpace(cfg.Loop) != "" {
		entries, err := parseLoop(cfg.Loop, eng.Activities())
		if err != nil {
			logger.Fatalf("loop: %v", err)
		}
		eng.ClearLoop()
		for _, e := range entries {
			if err := eng.AppendLoop(e); err != nil {
				logger.Fatalf("loop: %v", err)
			}
		}
	}

	ctx, cancel := signalContext()
	defer cancel()

	saveCh := make(chan snapshot.SaveV1, 2)
	rt.SetSaveSink(saveCh)
	saver := &runtime.SaveWriter{
		Dir:        saveDir,
		Keep:       cfg.KeepSaves,
		ArchiveDir: filepath.Join(cfg.DataDir, "archives"),
		Log:        logger,
	}
	if idx != nil {
		saver.Recorder = idx
	}
	go saver.Run(ctx, saveCh)

	var srv *http.Server
	if cfg.Addr != "" {
		mux := observer.NewServer(rt, cats.Activities.Digest, logger).Mux()
		mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
			rw.WriteHeader(http.StatusOK)
			_, _ = rw.Write([]byte("ok"))
		})
		srv = &http.Server{Addr: cfg.Addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			logger.Printf("observer listening on %s", cfg.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Printf("http: %v", err)
			}
		}()
	}

	logger.Printf("running mode=%s lifetime=%s tick_rate=%dHz long_tick_every=%d", eng.Mode(), eng.LifetimeID(), tune.TickRateHz, tune.LongTickEvery)
	runErr := rt.Run(ctx)

	if srv != nil {
		shutdownCtx, done := context.WithTimeout(context.Background(), 2*time.Second)
		_ = srv.Shutdown(shutdownCtx)
		done()
	}

	// The loop has stopped; take a final save on this goroutine.
	final := rt.Snapshot()
	path := snapshot.SavePath(saveDir, final.Header.Tick)
	if err := snapshot.WriteSave(path, final); err != nil {
		logger.Printf("final save: %v", err)
	} else {
		idx.RecordSave(path, final)
		logger.Printf("saved %s", filepath.Base(path))
	}
	if idx != nil {
		flushCtx, done := context.WithTimeout(context.Background(), 2*time.Second)
		if err := idx.Flush(flushCtx); err != nil {
			logger.Printf("index flush: %v", err)
		}
		done()
	}

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		logger.Fatalf("runtime: %v", runErr)
	}
}

func loadCatalogs(path string) (*catalogs.Catalogs, error) {
	if strings.TrimSpace(path) == "" {
		return catalogs.Default()
	}
	return catalogs.Load(path)
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}

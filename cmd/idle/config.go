package main

import (
	"flag"
	"fmt"
	"strconv"
	"strings"

	"github.com/caarlos0/env/v11"

	"immortal.idle/internal/sim/activity"
	"immortal.idle/internal/sim/progression"
)

// config is read from the environment first; flags override it.
type config struct {
	DataDir    string `env:"IDLE_DATA_DIR" envDefault:"./data"`
	ConfigDir  string `env:"IDLE_CONFIGS" envDefault:"./configs"`
	Addr       string `env:"IDLE_ADDR" envDefault:"127.0.0.1:8080"`
	DisableDB  bool   `env:"IDLE_DISABLE_DB"`
	Activities string `env:"IDLE_ACTIVITIES"`

	Mode      string
	Loop      string
	Fresh     bool
	KeepSaves int
	Verbose   bool
}

func parseConfig(fs *flag.FlagSet, args []string) (config, error) {
	var cfg config
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	fs.StringVar(&cfg.DataDir, "data", cfg.DataDir, "runtime data directory (saves, audit log, index)")
	fs.StringVar(&cfg.ConfigDir, "configs", cfg.ConfigDir, "config directory containing tuning.yaml")
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "observer http listen address (empty to disable)")
	fs.BoolVar(&cfg.DisableDB, "disable_db", cfg.DisableDB, "disable the sqlite progression index")
	fs.StringVar(&cfg.Activities, "activities", cfg.Activities, "activity table override (default: built-in tables)")
	fs.StringVar(&cfg.Mode, "mode", "", "game mode for a fresh start (NORMAL, SWIM, RAISE_ISLAND)")
	fs.StringVar(&cfg.Loop, "loop", "", `initial activity loop, e.g. "odd jobs:3,resting"`)
	fs.BoolVar(&cfg.Fresh, "fresh", false, "ignore existing saves")
	fs.IntVar(&cfg.KeepSaves, "keep_saves", 10, "number of save files to keep")
	fs.BoolVar(&cfg.Verbose, "v", false, "log player-facing game messages")
	if err := fs.Parse(args); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// parseLoop turns "name[:times],..." into loop entries. Names go through
// activity.Resolve so typos and level names are accepted.
func parseLoop(spec string, acts []*activity.Activity) ([]progression.LoopEntry, error) {
	var out []progression.LoopEntry
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, times := part, 1
		if i := strings.LastIndex(part, ":"); i >= 0 {
			n, err := strconv.Atoi(strings.TrimSpace(part[i+1:]))
			if err != nil || n < 1 {
				return nil, fmt.Errorf("loop entry %q: bad repeat count", part)
			}
			name, times = part[:i], n
		}
		t, err := activity.Resolve(name, acts)
		if err != nil {
			return nil, fmt.Errorf("loop entry %q: %w", part, err)
		}
		out = append(out, progression.LoopEntry{Activity: t, RepeatTimes: times})
	}
	return out, nil
}

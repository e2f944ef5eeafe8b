package tuning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	Mode string `yaml:"mode"`

	TickRateHz    int `yaml:"tick_rate_hz"`
	LongTickEvery int `yaml:"long_tick_every"`

	StartingApprenticeships int `yaml:"starting_apprenticeships"`
	ResetFastForwardPasses  int `yaml:"reset_fast_forward_passes"`

	AutoRestart  bool `yaml:"auto_restart"`
	PauseOnDeath bool `yaml:"pause_on_death"`

	SaveEveryLongTicks int `yaml:"save_every_long_ticks"`
}

func Defaults() Tuning {
	return Tuning{
		Mode:                    "NORMAL",
		TickRateHz:              10,
		LongTickEvery:           10,
		StartingApprenticeships: 1,
		ResetFastForwardPasses:  5,
		SaveEveryLongTicks:      60,
	}
}

// ApplyDefaults fills zero values from Defaults. Booleans keep what was set.
func (t *Tuning) ApplyDefaults() {
	d := Defaults()
	if t.Mode == "" {
		t.Mode = d.Mode
	}
	if t.TickRateHz <= 0 {
		t.TickRateHz = d.TickRateHz
	}
	if t.LongTickEvery <= 0 {
		t.LongTickEvery = d.LongTickEvery
	}
	if t.StartingApprenticeships <= 0 {
		t.StartingApprenticeships = d.StartingApprenticeships
	}
	if t.ResetFastForwardPasses <= 0 {
		t.ResetFastForwardPasses = d.ResetFastForwardPasses
	}
	if t.SaveEveryLongTicks <= 0 {
		t.SaveEveryLongTicks = d.SaveEveryLongTicks
	}
}

func Load(path string) (Tuning, error) {
	var t Tuning
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	t.ApplyDefaults()
	return t, nil
}

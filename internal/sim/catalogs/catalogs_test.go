package catalogs

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefault_LoadsAllModes(t *testing.T) {
	c, err := Default()
	if err != nil {
		t.Fatalf("default catalogs: %v", err)
	}
	if c.Activities.Digest == "" {
		t.Fatalf("expected digest")
	}
	want := map[string]int{"NORMAL": 19, "SWIM": 1, "RAISE_ISLAND": 2}
	for mode, n := range want {
		defs, ok := c.Activities.Mode(mode)
		if !ok {
			t.Fatalf("missing mode %s", mode)
		}
		if len(defs) != n {
			t.Fatalf("mode %s: got %d activities want %d", mode, len(defs), n)
		}
	}

	normal, _ := c.Activities.Mode("NORMAL")
	baseline := 0
	for _, d := range normal {
		if d.Baseline {
			baseline++
			if !d.Unlocked {
				t.Fatalf("%s is baseline but locked by default", d.Type)
			}
		}
	}
	if baseline != 2 {
		t.Fatalf("expected 2 baseline activities, got %d", baseline)
	}
}

func TestDefault_BlacksmithingTable(t *testing.T) {
	c, err := Default()
	if err != nil {
		t.Fatalf("default catalogs: %v", err)
	}
	normal, _ := c.Activities.Mode("NORMAL")
	var found *ActivityDef
	for i := range normal {
		if normal[i].Type == "BLACKSMITHING" {
			found = &normal[i]
		}
	}
	if found == nil {
		t.Fatalf("BLACKSMITHING missing")
	}
	if found.SkipApprenticeshipLevel != 2 || len(found.Levels) != 4 {
		t.Fatalf("unexpected blacksmithing shape: skip=%d levels=%d", found.SkipApprenticeshipLevel, len(found.Levels))
	}
	if got := found.Levels[0].Requirements["strength"]; got != 50 {
		t.Fatalf("level 0 strength requirement: got %v want 50", got)
	}
	if got := found.Levels[3].Requirements["fireLore"]; got != 10 {
		t.Fatalf("level 3 fireLore requirement: got %v want 10", got)
	}
}

func TestLoad_RejectsBadTables(t *testing.T) {
	cases := map[string]string{
		"no modes":  "modes: {}\n",
		"dup type":  "modes:\n  NORMAL:\n    - type: A\n      levels: [{name: a}]\n    - type: A\n      levels: [{name: b}]\n",
		"no levels": "modes:\n  NORMAL:\n    - type: A\n",
		"skip oob":  "modes:\n  NORMAL:\n    - type: A\n      skip_apprenticeship_level: 1\n      levels: [{name: a}]\n",
	}
	dir := t.TempDir()
	for name, body := range cases {
		p := filepath.Join(dir, strings.ReplaceAll(name, " ", "_")+".yaml")
		if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
		if _, err := Load(p); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestLoad_Override(t *testing.T) {
	p := filepath.Join(t.TempDir(), "activities.yaml")
	body := "modes:\n  NORMAL:\n    - type: ODD_JOBS\n      baseline: true\n      unlocked: true\n      levels:\n        - name: Odd Jobs\n          requirements: {}\n"
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	c, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	defs, ok := c.Activities.Mode("NORMAL")
	if !ok || len(defs) != 1 || defs[0].Type != "ODD_JOBS" {
		t.Fatalf("unexpected defs: %+v", defs)
	}
}

// Package archive keeps the final save of every finished life.
package archive

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"immortal.idle/internal/persistence/snapshot"
)

type LifetimeMeta struct {
	Lifetime  string `json:"lifetime"`
	Mode      string `json:"mode"`
	EndTick   uint64 `json:"end_tick"`
	LongTick  uint64 `json:"long_tick"`
	AgeDays   int    `json:"age_days"`
	Save      string `json:"save"`
	CreatedAt string `json:"created_at"`

	CompletedApprenticeships []string `json:"completed_apprenticeships"`
}

// Dir is where the archive of lifetime lives under root.
func Dir(root, lifetime string) string {
	return filepath.Join(root, "lifetime_"+lifetime)
}

// ArchiveLifetime copies the last save of a finished life into
// root/lifetime_<id>/ next to a meta.json summary. It returns the archived
// save path.
func ArchiveLifetime(root, savePath string, save snapshot.SaveV1) (string, error) {
	if save.Header.Lifetime == "" {
		return "", fmt.Errorf("archive: save has no lifetime")
	}
	dir := Dir(root, save.Header.Lifetime)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	dst := filepath.Join(dir, filepath.Base(savePath))
	if err := copyFile(savePath, dst); err != nil {
		return "", err
	}

	meta := LifetimeMeta{
		Lifetime:                 save.Header.Lifetime,
		Mode:                     string(save.Mode),
		EndTick:                  save.Header.Tick,
		LongTick:                 save.LongTick,
		AgeDays:                  save.Character.AgeDays,
		Save:                     filepath.Base(dst),
		CreatedAt:                time.Now().UTC().Format(time.RFC3339Nano),
		CompletedApprenticeships: []string{},
	}
	for _, t := range save.Properties.CompletedApprenticeships {
		meta.CompletedApprenticeships = append(meta.CompletedApprenticeships, string(t))
	}
	b, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(filepath.Join(dir, "meta.json"), b, 0o644); err != nil {
		return "", err
	}
	return dst, nil
}

// ReadMeta loads the summary written by ArchiveLifetime.
func ReadMeta(root, lifetime string) (LifetimeMeta, error) {
	var m LifetimeMeta
	b, err := os.ReadFile(filepath.Join(Dir(root, lifetime), "meta.json"))
	if err != nil {
		return m, err
	}
	err = json.Unmarshal(b, &m)
	return m, err
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() { _ = out.Close() }()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}

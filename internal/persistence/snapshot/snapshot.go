package snapshot

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zstd"

	"immortal.idle/internal/sim/activity"
	"immortal.idle/internal/sim/character"
	"immortal.idle/internal/sim/collab"
	"immortal.idle/internal/sim/progression"
)

const Version = 1

type Header struct {
	Version  int    `json:"version"`
	Lifetime string `json:"lifetime"`
	Tick     uint64 `json:"tick"`
}

// SaveV1 is one game save. The body is JSON so absent and empty properties
// stay distinguishable on restore.
type SaveV1 struct {
	Header Header `json:"header"`

	Mode     activity.Mode `json:"mode"`
	LongTick uint64        `json:"long_tick"`

	Properties progression.Properties `json:"properties"`
	Character  character.State        `json:"character"`

	Inventory []collab.Item          `json:"inventory,omitempty"`
	Trials    map[activity.Trial]int `json:"trials,omitempty"`
}

const (
	filePrefix = "save-"
	fileSuffix = ".json.zst"
)

// SavePath returns the file name for a save taken at tick.
func SavePath(dir string, tick uint64) string {
	return filepath.Join(dir, fmt.Sprintf("%s%d%s", filePrefix, tick, fileSuffix))
}

func WriteSave(path string, save SaveV1) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := writeSaveFile(tmp, save); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

func writeSaveFile(path string, save SaveV1) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	bw := bufio.NewWriterSize(enc, 64*1024)

	save.Header.Version = Version
	hb, _ := json.Marshal(save.Header)
	if _, err := bw.Write(hb); err != nil {
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		return err
	}
	if err := json.NewEncoder(bw).Encode(&save); err != nil {
		return fmt.Errorf("json encode: %w", err)
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}
	return f.Sync()
}

func ReadSave(path string) (SaveV1, error) {
	var save SaveV1
	f, err := os.Open(path)
	if err != nil {
		return save, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return save, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 64*1024)
	line, err := br.ReadBytes('\n')
	if err != nil {
		return save, fmt.Errorf("read header: %w", err)
	}
	var h Header
	if err := json.Unmarshal(line, &h); err != nil {
		return save, fmt.Errorf("decode header: %w", err)
	}
	if h.Version != Version {
		return save, fmt.Errorf("unsupported save version %d", h.Version)
	}
	if err := json.NewDecoder(br).Decode(&save); err != nil {
		return save, fmt.Errorf("json decode: %w", err)
	}
	return save, nil
}

// ListSaves returns the save files in dir ordered by tick, oldest first.
func ListSaves(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	type saveFile struct {
		tick uint64
		path string
	}
	var files []saveFile
	for _, e := range entries {
		tick, ok := parseTick(e.Name())
		if e.IsDir() || !ok {
			continue
		}
		files = append(files, saveFile{tick: tick, path: filepath.Join(dir, e.Name())})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].tick < files[j].tick })
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.path
	}
	return out, nil
}

// LatestSave returns the newest save in dir, or "" when there is none.
func LatestSave(dir string) (string, error) {
	files, err := ListSaves(dir)
	if err != nil || len(files) == 0 {
		return "", err
	}
	return files[len(files)-1], nil
}

// PruneSaves deletes all but the newest keep saves.
func PruneSaves(dir string, keep int) error {
	files, err := ListSaves(dir)
	if err != nil {
		return err
	}
	for len(files) > keep {
		if err := os.Remove(files[0]); err != nil {
			return err
		}
		files = files[1:]
	}
	return nil
}

func parseTick(name string) (uint64, bool) {
	if !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileSuffix) {
		return 0, false
	}
	n, err := strconv.ParseUint(strings.TrimSuffix(strings.TrimPrefix(name, filePrefix), fileSuffix), 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

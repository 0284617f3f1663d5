package fsutil

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/marmistrz/ipu6-camera-hal/internal/pipeline"
)

var captureExts = map[string]struct{}{
	".jsonl":  {},
	".ndjson": {},
}

// maxLineSize bounds a single frame record.
const maxLineSize = 4 << 20

// ListCaptureLogs returns the capture logs at root in lexical order. A file
// path is returned as is, whatever its extension.
func ListCaptureLogs(root string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{root}, nil
	}

	var files []string
	err = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if IsCaptureLog(path) {
			files = append(files, path)
		}
		return nil
	})
	sort.Strings(files)
	return files, err
}

// IsCaptureLog checks if a file has a capture log extension.
func IsCaptureLog(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	_, ok := captureExts[ext]
	return ok
}

// FirstExisting returns the first path that exists.
func FirstExisting(paths ...string) string {
	for _, p := range paths {
		if p == "" {
			continue
		}
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// ReadFrames decodes a capture log file.
func ReadFrames(path string) ([]pipeline.Frame, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	frames, err := DecodeFrames(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return frames, nil
}

// DecodeFrames reads one JSON frame per line. Blank lines and lines starting
// with '#' are skipped.
func DecodeFrames(r io.Reader) ([]pipeline.Frame, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLineSize)

	var frames []pipeline.Frame
	line := 0
	for sc.Scan() {
		line++
		data := bytes.TrimSpace(sc.Bytes())
		if len(data) == 0 || data[0] == '#' {
			continue
		}
		var fr pipeline.Frame
		if err := json.Unmarshal(data, &fr); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		frames = append(frames, fr)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("line %d: %w", line+1, err)
	}
	return frames, nil
}

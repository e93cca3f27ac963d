package library

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// maxLineBytes caps one record line. Longer lines are skipped, not fatal.
var maxLineBytes = 1024 * 1024

// readLines returns every line of path with the line terminator stripped.
// A line longer than maxLineBytes is logged as malformed and returned empty,
// so callers skip it like a blank line while later lines keep their numbers.
func readLines(path string, log *slog.Logger) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", ErrIO, path, err)
	}
	defer f.Close()

	var lines []string
	r := bufio.NewReaderSize(f, 64*1024)
	for n := 1; ; n++ {
		line, tooLong, err := readLine(r, maxLineBytes)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: read %s: %w", ErrIO, path, err)
		}
		if tooLong {
			log.Warn("skipping line", "line", n,
				"reason", fmt.Errorf("%w: longer than %d bytes", ErrMalformed, maxLineBytes))
		}
		lines = append(lines, strings.TrimRight(line, "\r"))
	}
	return lines, nil
}

// readLine reads one line of any length, keeping at most limit bytes.
// io.EOF is returned only when no line is left.
func readLine(r *bufio.Reader, limit int) (string, bool, error) {
	var (
		buf     []byte
		tooLong bool
	)
	for {
		chunk, isPrefix, err := r.ReadLine()
		if err != nil {
			return "", false, err
		}
		if !tooLong {
			if len(buf)+len(chunk) > limit {
				tooLong, buf = true, nil
			} else {
				buf = append(buf, chunk...)
			}
		}
		if !isPrefix {
			break
		}
	}
	if tooLong {
		return "", true, nil
	}
	return string(buf), false, nil
}

// replaceFile writes header and lines to a temp file next to path and renames
// it over path. A failed write leaves the previous file untouched.
func replaceFile(path, header string, lines []string) error {
	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("%w: create dir %s: %w", ErrIO, dir, err)
		}
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: create temp for %s: %w", ErrIO, path, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	w := bufio.NewWriter(tmp)
	w.WriteString(header)
	w.WriteByte('\n')
	for _, l := range lines {
		w.WriteString(l)
		w.WriteByte('\n')
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: write %s: %w", ErrIO, path, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: sync %s: %w", ErrIO, path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: close %s: %w", ErrIO, path, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("%w: chmod %s: %w", ErrIO, path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("%w: replace %s: %w", ErrIO, path, err)
	}
	return nil
}

// fileExists reports whether path exists and is non-empty.
func fileExists(path string) bool {
	st, err := os.Stat(path)
	return err == nil && st.Size() > 0
}

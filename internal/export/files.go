package export

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Mode selects how an export treats files that already exist.
type Mode int

const (
	// ModeReplace rewrites each target file in full; reruns over the same
	// input give the same bytes.
	ModeReplace Mode = iota
	// ModeAppend adds entries to the end of existing files.
	ModeAppend
)

func (m Mode) String() string {
	switch m {
	case ModeReplace:
		return "replace"
	case ModeAppend:
		return "append"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// writeFile writes path according to mode. fill receives fresh=true when the
// file is new or being replaced, so it knows whether to emit a header.
func writeFile(path string, mode Mode, fill func(w io.Writer, fresh bool) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	if mode == ModeAppend {
		return appendFile(path, fill)
	}
	return replaceFile(path, func(w io.Writer) error { return fill(w, true) })
}

// replaceFile writes to a temp file next to path and renames it into place.
func replaceFile(path string, fill func(w io.Writer) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", path, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	bw := bufio.NewWriter(tmp)
	if err := fill(bw); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := bw.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

func appendFile(path string, fill func(w io.Writer, fresh bool) error) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open %s for append: %w", path, err)
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return err
	}
	bw := bufio.NewWriter(f)
	if err := fill(bw, fi.Size() == 0); err != nil {
		f.Close()
		return fmt.Errorf("append %s: %w", path, err)
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("append %s: %w", path, err)
	}
	return f.Close()
}

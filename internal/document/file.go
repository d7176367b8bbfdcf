package document

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// BlockSeparator delimits blocks in a block dump.
const BlockSeparator = "\n"

// WriteFile creates path through a temporary file in the same directory and
// renames it into place once fn succeeds. On any error the destination is
// left untouched.
func WriteFile(path string, fn func(w io.Writer) error) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	bw := bufio.NewWriter(tmp)
	if err := fn(bw); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := bw.Flush(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	return nil
}

// WriteBlocks stores texts as a block dump, one block per line.
func WriteBlocks(path string, texts []string) error {
	for i, t := range texts {
		if strings.Contains(t, BlockSeparator) {
			return fmt.Errorf("block %d contains a line break", i+1)
		}
	}
	return WriteFile(path, func(w io.Writer) error {
		_, err := io.WriteString(w, strings.Join(texts, BlockSeparator))
		return err
	})
}

// ReadBlocks loads a block dump. An empty file holds no blocks; otherwise
// every separator-delimited segment is a block, empty ones included.
func ReadBlocks(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return []string{}, nil
	}
	return strings.Split(string(data), BlockSeparator), nil
}

package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// FileOpener opens local files. With a Root set, locations are resolved
// inside it and may not escape it.
type FileOpener struct {
	Root string
}

func (o FileOpener) Open(ctx context.Context, location string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := o.resolve(location)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, location)
		}
		return nil, fmt.Errorf("source: open %s: %w", location, err)
	}
	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("source: stat %s: %w", location, err)
	}
	if info.IsDir() {
		_ = file.Close()
		return nil, fmt.Errorf("source: %s is a directory", location)
	}
	return file, nil
}

func (o FileOpener) resolve(location string) (string, error) {
	location = strings.TrimSpace(location)
	if location == "" {
		return "", fmt.Errorf("source: file path is required")
	}
	root := strings.TrimSpace(o.Root)
	if root == "" {
		return filepath.Clean(location), nil
	}
	if !filepath.IsLocal(location) {
		return "", fmt.Errorf("source: path %q escapes root", location)
	}
	return filepath.Join(root, location), nil
}

package source

import (
	"context"
	"fmt"
	"os"
)

// File reads a saved uiautomator dump.
type File struct {
	Path string
	Options
}

// NewFile creates a file source.
func NewFile(path string, opts Options) *File {
	return &File{Path: path, Options: opts}
}

// Name returns the file path.
func (f *File) Name() string {
	return f.Path
}

// Capture reads and parses the file on every call.
func (f *File) Capture(ctx context.Context) (*Capture, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("read dump: %w", err)
	}
	return f.parse(string(data), Display{})
}

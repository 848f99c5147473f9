package protocolclient

import (
	"context"
	"os"
	"path/filepath"
)

// Local serves the host filesystem directly; no connection state to hold.
type Local struct {
	root string
}

func NewLocal(root string) *Local {
	return &Local{root: root}
}

func (l *Local) Connect(ctx context.Context) error { return nil }
func (l *Local) Close() error                      { return nil }

func (l *Local) resolve(path string) string {
	return filepath.Join(l.root, filepath.Clean("/"+path))
}

func (l *Local) List(ctx context.Context, path string) ([]Entry, error) {
	entries, err := os.ReadDir(l.resolve(path))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		info, err := e.Info()
		if err != nil {
			continue
		}
		out = append(out, Entry{Name: e.Name(), IsDir: e.IsDir(), Size: info.Size(), ModTime: info.ModTime()})
	}
	return out, nil
}

func (l *Local) Open(ctx context.Context, path string) (ReadSeekCloser, error) {
	f, err := os.Open(l.resolve(path))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return f, nil
}

func (l *Local) Stat(ctx context.Context, path string) (Entry, error) {
	info, err := os.Stat(l.resolve(path))
	if err != nil {
		if os.IsNotExist(err) {
			return Entry{}, ErrNotFound
		}
		return Entry{}, err
	}
	return Entry{Name: info.Name(), IsDir: info.IsDir(), Size: info.Size(), ModTime: info.ModTime()}, nil
}

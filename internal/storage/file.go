// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/dalepay/applock/internal/util"
)

// FileStore persists the whole map as one JSON document. Every Set rewrites
// the file atomically, so a crash leaves either the old or the new map.
type FileStore struct {
	mu     sync.Mutex
	path   string
	closed bool
}

// NewFileStore returns a FileStore backed by path. The file is created on
// first Set.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, errors.New("file store requires a path")
	}
	return &FileStore{path: path}, nil
}

// Path returns the backing file path.
func (f *FileStore) Path() string { return f.path }

func (f *FileStore) Get(_ context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return "", wrapErr("get", key, ErrClosed)
	}
	values, err := f.readLocked()
	if err != nil {
		return "", wrapErr("get", key, err)
	}
	v, ok := values[key]
	if !ok {
		return "", wrapErr("get", key, ErrNotFound)
	}
	return v, nil
}

func (f *FileStore) Set(_ context.Context, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return wrapErr("set", key, ErrClosed)
	}
	values, err := f.readLocked()
	if err != nil {
		return wrapErr("set", key, err)
	}
	values[key] = value
	return wrapErr("set", key, util.AtomicWriteJSON(f.path, values, 0600))
}

func (f *FileStore) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *FileStore) readLocked() (map[string]string, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return make(map[string]string), nil
	}
	if err != nil {
		return nil, err
	}
	values := make(map[string]string)
	if len(data) == 0 {
		return values, nil
	}
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("corrupt store file %s: %w", f.path, err)
	}
	return values, nil
}

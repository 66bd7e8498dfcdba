// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package kvstore provides the small client-local key-value storage that persists state across
// runs of the program, such as the cached location.
package kvstore

import (
	"context"
	"errors"
	"fmt"
)

const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

var (
	ErrNotFound       = errors.New("key not found")
	ErrUnknownBackend = errors.New("unknown key-value store backend")
)

// Store is a string key-value store.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Close() error
}

// Open returns the Store for the given backend. path is the cache directory for the file backend
// and the database file for the sqlite backend.
func Open(ctx context.Context, backend, path string) (Store, error) {
	switch backend {
	case BackendFile, "":
		return NewFileStore(path)
	case BackendSQLite:
		return NewSQLiteStore(ctx, path)
	case BackendMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownBackend, backend)
	}
}

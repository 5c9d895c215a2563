// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package store

import "fmt"

// Options selects and configures a backend.
type Options struct {
	Backend string // memory | badger | redis
	Path    string // badger data directory
	Redis   RedisConfig
}

// Open builds the configured store. An empty backend means memory.
func Open(opts Options) (Store, error) {
	switch opts.Backend {
	case "", "memory":
		return NewMemoryStore(), nil
	case "badger":
		if opts.Path == "" {
			return nil, fmt.Errorf("store: badger backend needs a path")
		}
		return OpenBadgerStore(opts.Path)
	case "redis":
		if opts.Redis.Addr == "" {
			return nil, fmt.Errorf("store: redis backend needs an address")
		}
		return NewRedisStore(opts.Redis)
	default:
		return nil, fmt.Errorf("store: unknown backend %q", opts.Backend)
	}
}

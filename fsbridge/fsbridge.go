// Package fsbridge forwards filesystem notifications into an event
// registry as fs.* events.
package fsbridge

import (
	"context"
	"io/fs"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/dshills/eavesdrop"
)

// Event names published by the bridge. Payloads carry "path" and "op"
// fields.
const (
	EventCreate = "fs.create"
	EventWrite  = "fs.write"
	EventRemove = "fs.remove"
	EventRename = "fs.rename"
	EventChmod  = "fs.chmod"
)

// Target is the publishing surface the bridge drives. Both
// *eavesdrop.Registry and *eavesdrop.Publisher satisfy it.
type Target interface {
	Publish(ctx context.Context, event any, fields ...eavesdrop.Fields) error
}

// Bridge watches paths and publishes one event per filesystem notification.
type Bridge struct {
	watcher *fsnotify.Watcher
	target  Target
	log     *zap.Logger
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithLogger sets the bridge's logger.
func WithLogger(log *zap.Logger) Option {
	return func(b *Bridge) {
		if log != nil {
			b.log = log
		}
	}
}

// New creates a bridge publishing into target.
func New(target Target, opts ...Option) (*Bridge, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	b := &Bridge{
		watcher: w,
		target:  target,
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// Add starts watching a file or directory. Directories are not recursive;
// use AddRecursive for a tree.
func (b *Bridge) Add(path string) error {
	return b.watcher.Add(path)
}

// AddRecursive walks root and watches every directory under it.
func (b *Bridge) AddRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		return b.watcher.Add(path)
	})
}

// Remove stops watching a path.
func (b *Bridge) Remove(path string) error {
	return b.watcher.Remove(path)
}

// Run pumps notifications into the target until ctx is cancelled or the
// bridge is closed. Watcher errors are logged, not fatal.
func (b *Bridge) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-b.watcher.Events:
			if !ok {
				return nil
			}
			b.forward(ctx, ev)
		case err, ok := <-b.watcher.Errors:
			if !ok {
				return nil
			}
			b.log.Warn("watch error", zap.Error(err))
		}
	}
}

// Close shuts the underlying watcher down; a blocked Run returns after
// Close.
func (b *Bridge) Close() error {
	return b.watcher.Close()
}

func (b *Bridge) forward(ctx context.Context, ev fsnotify.Event) {
	name := eventName(ev.Op)
	if name == "" {
		return
	}
	err := b.target.Publish(ctx, name, eavesdrop.Fields{
		"path": ev.Name,
		"op":   ev.Op.String(),
	})
	if err != nil {
		b.log.Warn("dispatch failed",
			zap.String("event", name),
			zap.String("path", ev.Name),
			zap.Error(err))
	}
}

func eventName(op fsnotify.Op) string {
	switch {
	case op.Has(fsnotify.Create):
		return EventCreate
	case op.Has(fsnotify.Write):
		return EventWrite
	case op.Has(fsnotify.Remove):
		return EventRemove
	case op.Has(fsnotify.Rename):
		return EventRename
	case op.Has(fsnotify.Chmod):
		return EventChmod
	}
	return ""
}

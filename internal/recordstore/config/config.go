// Package config loads the defaults a new recordstore.Store is constructed
// with from recordstore.yaml. It never reaches into a live Store — a config
// edit only affects Stores constructed after the reload, never one already
// running.
package config

import (
	"fmt"
	"log"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/linagora/overture/internal/recordstore"
)

// Defaults mirrors recordstore.Options in config-file form.
type Defaults struct {
	AutoCommit      bool `mapstructure:"auto_commit"`
	RebaseConflicts bool `mapstructure:"rebase_conflicts"`
}

// ToOptions converts d into recordstore.Options (IsNested is always false —
// nested stores are never constructed from file config).
func (d Defaults) ToOptions() recordstore.Options {
	return recordstore.Options{AutoCommit: d.AutoCommit, RebaseConflicts: d.RebaseConflicts}
}

// Watcher holds the live, hot-reloadable Defaults loaded from a
// recordstore.yaml file. Read Current() each time a new Store is about to
// be constructed.
type Watcher struct {
	mu  sync.RWMutex
	cur Defaults
	v   *viper.Viper
}

// Load reads path once and, if watch is true, keeps cur up to date via
// fsnotify for the life of the process, so edits to recordstore.yaml take
// effect without a restart.
func Load(path string, watch bool) (*Watcher, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetDefault("auto_commit", true)
	v.SetDefault("rebase_conflicts", true)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
	}

	w := &Watcher{v: v}
	if err := w.reload(); err != nil {
		return nil, err
	}

	if watch {
		v.OnConfigChange(func(e fsnotify.Event) {
			if err := w.reload(); err != nil {
				log.Printf("recordstore/config: reload %s failed after %s: %v", path, e.Op, err)
			}
		})
		v.WatchConfig()
	}

	return w, nil
}

func (w *Watcher) reload() error {
	var d Defaults
	if err := w.v.Unmarshal(&d); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	w.mu.Lock()
	w.cur = d
	w.mu.Unlock()
	return nil
}

// Current returns the most recently loaded Defaults.
func (w *Watcher) Current() Defaults {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.cur
}

// ABOUTME: Directory listing and filtering that feeds the picker's choice table
// ABOUTME: Names are NFC-normalized so visually equal names sort and match alike

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/text/unicode/norm"

	"github.com/mauromedda/termdrop/pkg/tui/fuzzy"
)

// entry is one deletable directory entry.
type entry struct {
	name string // NFC display name, the picker key
	path string // on-disk path, unnormalized
}

// listEntries reads dir and returns its entries, hidden ones only if showHidden.
func listEntries(dir string, showHidden bool) ([]entry, error) {
	des, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", dir, err)
	}

	entries := make([]entry, 0, len(des))
	for _, de := range des {
		if !showHidden && strings.HasPrefix(de.Name(), ".") {
			continue
		}
		name := norm.NFC.String(de.Name())
		if de.IsDir() {
			name += string(filepath.Separator)
		}
		entries = append(entries, entry{name: name, path: filepath.Join(dir, de.Name())})
	}
	return entries, nil
}

// filterEntries keeps the entries whose names fuzzy-match pattern.
func filterEntries(entries []entry, pattern string) []entry {
	if pattern == "" {
		return entries
	}
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.name
	}
	matches := fuzzy.Find(norm.NFC.String(pattern), names)
	out := make([]entry, len(matches))
	for i, m := range matches {
		out[i] = entries[m.Index]
	}
	return out
}

// remover runs the deletion for whichever entry gets confirmed and keeps
// the outcome for reporting once the session is joined.
type remover struct {
	dryRun bool
	remove func(path string) error

	mu      sync.Mutex
	paths   map[string]string
	removed string
	err     error
}

func newRemover(entries []entry, dryRun bool) *remover {
	r := &remover{dryRun: dryRun, remove: os.RemoveAll, paths: make(map[string]string, len(entries))}
	for _, e := range entries {
		r.paths[e.name] = e.path
	}
	return r
}

// choices builds the picker table: every name maps to the same deletion action.
func (r *remover) choices() map[string]func(string) {
	m := make(map[string]func(string), len(r.paths))
	for name := range r.paths {
		m[name] = r.delete
	}
	return m
}

func (r *remover) delete(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	path := r.paths[name]
	r.removed = path
	if r.dryRun {
		return
	}
	if err := r.remove(path); err != nil {
		r.err = fmt.Errorf("removing %s: %w", path, err)
	}
}

// outcome returns the path handled by the action and the deletion error, if any.
func (r *remover) outcome() (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.removed, r.err
}

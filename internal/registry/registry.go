// Package registry provides a global catalog of built-in tracks.
// Track packs register themselves in init() functions, allowing the
// platform to discover tracks without hardcoded dependencies.
package registry

import (
	"fmt"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"
)

// TrackInfo contains metadata about a registered track.
type TrackInfo struct {
	ID    string
	Title string
}

var (
	sources = make(map[string][]byte)
	titles  = make(map[string]string)
	mu      sync.RWMutex
)

// Register adds a track definition to the registry.
// Typically called from a track pack's init() function.
// Panics if a track with the same ID is already registered or the
// header cannot be read.
func Register(id string, data []byte) {
	mu.Lock()
	defer mu.Unlock()

	if _, exists := sources[id]; exists {
		panic(fmt.Sprintf("registry: track %q already registered", id))
	}

	var header struct {
		Name string `yaml:"name"`
	}
	if err := yaml.Unmarshal(data, &header); err != nil {
		panic(fmt.Sprintf("registry: track %q: %v", id, err))
	}
	if header.Name == "" {
		header.Name = id
	}

	sources[id] = data
	titles[id] = header.Name
}

// List returns information about all registered tracks, sorted by ID.
func List() []TrackInfo {
	mu.RLock()
	defer mu.RUnlock()

	result := make([]TrackInfo, 0, len(sources))
	for id := range sources {
		result = append(result, TrackInfo{
			ID:    id,
			Title: titles[id],
		})
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].ID < result[j].ID
	})

	return result
}

// Source returns the YAML definition of a track by its ID.
// Returns an error if the track ID is not registered.
func Source(id string) ([]byte, error) {
	mu.RLock()
	defer mu.RUnlock()

	data, ok := sources[id]
	if !ok {
		return nil, fmt.Errorf("registry: unknown track %q", id)
	}

	return data, nil
}

// Exists checks if a track with the given ID is registered.
func Exists(id string) bool {
	mu.RLock()
	defer mu.RUnlock()

	_, ok := sources[id]
	return ok
}

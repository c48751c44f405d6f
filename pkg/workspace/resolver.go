package workspace

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"
)

// missTTL is how long an unresolvable hash is remembered before the registry
// is scanned for it again.
const missTTL = time.Minute

// Resolver maps chat directory hashes back to workspace paths.
//
// Verified mappings are cached for the lifetime of the Resolver. The cache
// is seeded at construction from persisted mappings and the mappings learned
// since are exposed through Discovered so the caller can persist them.
// Resolver is safe for concurrent use.
type Resolver struct {
	projectsDir string
	logger      *slog.Logger

	found   *cache.Cache
	missing *cache.Cache
	group   singleflight.Group

	mu         sync.Mutex
	discovered map[string]string
}

// NewResolver creates a Resolver scanning projectsDir, pre-seeded with seed.
func NewResolver(projectsDir string, seed []Mapping, logger *slog.Logger) *Resolver {
	r := &Resolver{
		projectsDir: projectsDir,
		logger:      logger,
		found:       cache.New(cache.NoExpiration, 0),
		missing:     cache.New(missTTL, 2*missTTL),
		discovered:  map[string]string{},
	}

	for _, m := range seed {
		if m.Hash == "" || m.Path == "" {
			continue
		}
		r.found.SetDefault(m.Hash, m.Path)
	}

	return r
}

// Resolve returns the workspace path whose hash is hash, or ErrNotFound.
func (r *Resolver) Resolve(hash string) (string, error) {
	if path, ok := r.found.Get(hash); ok {
		return path.(string), nil
	}
	if _, ok := r.missing.Get(hash); ok {
		return "", ErrNotFound
	}

	v, err, _ := r.group.Do(hash, func() (any, error) {
		return r.scan(hash)
	})
	if err != nil {
		return "", err
	}

	return v.(string), nil
}

// Observe registers path directly, as reported by a hook payload. The mapping
// is correct by construction since the hash is computed from path.
func (r *Resolver) Observe(path string) Mapping {
	path = filepath.Clean(path)
	m := Mapping{Hash: Hash(path), Path: path}
	r.remember(m)
	return m
}

// Discovered returns the mappings learned since construction, excluding the
// seed.
func (r *Resolver) Discovered() []Mapping {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Mapping, 0, len(r.discovered))
	for hash, path := range r.discovered {
		out = append(out, Mapping{Hash: hash, Path: path})
	}
	return out
}

func (r *Resolver) remember(m Mapping) {
	if _, ok := r.found.Get(m.Hash); ok {
		return
	}
	r.found.SetDefault(m.Hash, m.Path)
	r.missing.Delete(m.Hash)

	r.mu.Lock()
	r.discovered[m.Hash] = m.Path
	r.mu.Unlock()
}

// scan walks the project registry. Every entry that decodes to an existing
// directory is remembered, so a single scan warms the cache for all
// workspaces. Entries whose directory is gone are only enumerated blindly
// while looking for target.
func (r *Resolver) scan(target string) (string, error) {
	if path, ok := r.found.Get(target); ok {
		return path.(string), nil
	}

	entries, err := os.ReadDir(r.projectsDir)
	if err != nil {
		if os.IsNotExist(err) {
			r.missing.SetDefault(target, struct{}{})
			return "", ErrNotFound
		}
		return "", fmt.Errorf("reading project registry: %w", err)
	}

	var unresolved []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}

		matched := false
		for _, candidate := range existingCandidates(e.Name()) {
			m := Mapping{Hash: Hash(candidate), Path: candidate}
			r.remember(m)
			matched = true
		}
		if !matched {
			unresolved = append(unresolved, e.Name())
		}
	}

	if path, ok := r.found.Get(target); ok {
		return path.(string), nil
	}

	for _, name := range unresolved {
		for _, candidate := range allCandidates(name) {
			if Hash(candidate) == target {
				r.remember(Mapping{Hash: target, Path: candidate})
				return candidate, nil
			}
		}
	}

	r.logger.Debug("workspace hash not in registry", "hash", target, "entries", len(entries))
	r.missing.SetDefault(target, struct{}{})

	return "", ErrNotFound
}

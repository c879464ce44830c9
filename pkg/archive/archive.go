// Package archive moves derived artifacts to durable storage. Upload
// failures never discard a recording: the artifact falls back to a
// local-path reference and its file stays on disk.
package archive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"
)

// LocalScheme prefixes fallback references to files kept on local disk
const LocalScheme = "local://"

// ObjectStore is durable blob storage reachable by key
type ObjectStore interface {
	// Put uploads the file at path under key and returns its durable URL
	Put(ctx context.Context, key, path string) (string, error)
}

// Result is the outcome of archiving one session's artifacts
type Result struct {
	// URLs maps artifact kind to its durable URL, or a local:// fallback
	URLs map[string]string
	// AllDurable is true when every artifact reached the object store
	AllDurable bool
}

// Uploader archives transcoded artifacts under <prefix>/<workDir name>/
type Uploader struct {
	store  ObjectStore
	prefix string
	logger zerolog.Logger
}

// NewUploader creates an uploader writing under the given key prefix
func NewUploader(store ObjectStore, prefix string, logger zerolog.Logger) *Uploader {
	return &Uploader{
		store:  store,
		prefix: prefix,
		logger: logger.With().Str("component", "archive").Logger(),
	}
}

// Archive uploads artifacts (kind -> local path) and returns a location per
// kind. A failed upload degrades that artifact to a local:// reference and
// retains its file. Local copies are deleted only after their own upload
// succeeded; the source file and the work directory are removed only when
// every artifact is durable, so a directory never loses the only copy of
// its data.
func (u *Uploader) Archive(ctx context.Context, workDir, source string, artifacts map[string]string) Result {
	dirName := filepath.Base(workDir)

	type outcome struct {
		kind    string
		url     string
		durable bool
	}

	results := make(chan outcome, len(artifacts))
	var wg sync.WaitGroup
	for kind, path := range artifacts {
		wg.Add(1)
		go func(kind, path string) {
			defer wg.Done()
			key := fmt.Sprintf("%s/%s/%s", u.prefix, dirName, filepath.Base(path))
			url, err := u.store.Put(ctx, key, path)
			if err != nil {
				u.logger.Error().Err(err).Str("kind", kind).Str("key", key).
					Msg("Upload failed, falling back to local path")
				results <- outcome{kind: kind, url: localURL(path)}
				return
			}
			results <- outcome{kind: kind, url: url, durable: true}
		}(kind, path)
	}
	wg.Wait()
	close(results)

	res := Result{URLs: make(map[string]string, len(artifacts)), AllDurable: true}
	for out := range results {
		res.URLs[out.kind] = out.url
		if out.durable {
			// The artifact's own upload succeeded; its local copy is no
			// longer the only copy.
			if err := os.Remove(artifacts[out.kind]); err != nil {
				u.logger.Warn().Err(err).Str("kind", out.kind).Msg("Failed to remove archived artifact")
			}
		} else {
			res.AllDurable = false
		}
	}

	if !res.AllDurable {
		u.logger.Warn().Str("workDir", workDir).Msg("Work directory retained, holds fallback artifacts")
		return res
	}

	if err := os.Remove(source); err != nil && !os.IsNotExist(err) {
		u.logger.Warn().Err(err).Str("source", source).Msg("Failed to remove capture source")
		return res
	}
	if err := os.Remove(workDir); err != nil {
		u.logger.Warn().Err(err).Str("workDir", workDir).Msg("Failed to remove work directory")
		return res
	}

	u.logger.Info().Str("workDir", workDir).Msg("Artifacts archived, work directory removed")
	return res
}

func localURL(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return LocalScheme + abs
}

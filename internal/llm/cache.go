package llm

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

var cacheBucket = []byte("structured_responses")

// ResponseCache persists completed structured responses keyed by the full
// call fingerprint (provider, model, prompts, schema, image bytes). With
// temperature pinned to 0 a hit is a deterministic replay; forced
// re-analysis still reaches the provider because the backup/overwrite
// policy lives above this layer.
type ResponseCache struct {
	db *bolt.DB
}

// OpenResponseCache opens (or creates) the cache database.
func OpenResponseCache(path string) (*ResponseCache, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open llm cache: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(cacheBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &ResponseCache{db: db}, nil
}

// Close closes the underlying database.
func (c *ResponseCache) Close() error { return c.db.Close() }

// Get returns a cached completed payload for the request fingerprint.
func (c *ResponseCache) Get(provider, model string, req Request) ([]byte, bool) {
	key := fingerprint(provider, model, req)
	var out []byte
	err := c.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(cacheBucket).Get(key)
		if v != nil {
			out = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil || out == nil {
		return nil, false
	}
	return out, true
}

// Put stores a completed payload. Only completed responses are ever cached.
func (c *ResponseCache) Put(provider, model string, req Request, payload []byte) {
	key := fingerprint(provider, model, req)
	_ = c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(cacheBucket).Put(key, payload)
	})
}

// Delete drops a cache entry; used when a cached payload fails validation.
func (c *ResponseCache) Delete(provider, model string, req Request) {
	key := fingerprint(provider, model, req)
	_ = c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(cacheBucket).Delete(key)
	})
}

func fingerprint(provider, model string, req Request) []byte {
	h := sha256.New()
	for _, s := range []string{provider, model, req.System, req.User, req.Schema.Name} {
		h.Write([]byte(s))
		h.Write([]byte{0})
	}
	h.Write(req.Schema.Raw)
	for _, img := range req.Images {
		h.Write([]byte(img.MIMEType))
		h.Write(img.Data)
	}
	sum := h.Sum(nil)
	return []byte(hex.EncodeToString(sum))
}

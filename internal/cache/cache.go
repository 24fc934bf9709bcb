package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Cache is a durable key -> JSON document store for LLM results.
// Entries never expire; bumping a prompt version makes old keys unreachable.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
	Close() error
}

// HashHex returns the hex sha256 of s
func HashHex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// Key derives the cache key for one LLM call from the model identity, the
// prompt version, the requirement and a hash of the relevant input.
func Key(model, promptVersion, requirementID, contentHash string) string {
	return HashHex(fmt.Sprintf("%s:%s:%s:%s", model, promptVersion, requirementID, contentHash))
}

// GetJSON looks up key and decodes it into v. Undecodable entries count as misses.
func GetJSON(ctx context.Context, c Cache, key string, v any) bool {
	data, ok := c.Get(ctx, key)
	if !ok {
		return false
	}
	return json.Unmarshal(data, v) == nil
}

// SetJSON encodes v and stores it under key
func SetJSON(ctx context.Context, c Cache, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal cache value: %w", err)
	}
	return c.Set(ctx, key, data)
}

// NopCache never stores anything
type NopCache struct{}

func (NopCache) Get(context.Context, string) ([]byte, bool) { return nil, false }
func (NopCache) Set(context.Context, string, []byte) error  { return nil }
func (NopCache) Delete(context.Context, string) error       { return nil }
func (NopCache) Clear(context.Context) error                { return nil }
func (NopCache) Close() error                               { return nil }

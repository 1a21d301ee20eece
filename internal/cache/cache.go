// Package cache stores embedding vectors keyed by provider, model and text
// so that repeated queries and re-indexing skip the embedding call.
package cache

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"math"
	"strconv"
	"time"
)

// Cache defines the interface for caching
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
	Stats() Stats
}

// Stats reports cache effectiveness
type Stats struct {
	Hits   uint64 `json:"hits"`
	Misses uint64 `json:"misses"`
	Items  int    `json:"items"`
}

const keyPrefix = "nurpath:emb:v1:"

// EmbeddingKey derives the cache key for one embedding. Any change of
// provider, model, dimension or prefix mode yields a different key.
func EmbeddingKey(provider, model string, dim int, mode, text string) string {
	h := sha256.New()
	for _, part := range []string{provider, model, strconv.Itoa(dim), mode, text} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return keyPrefix + hex.EncodeToString(h.Sum(nil))
}

// EncodeVector serializes a vector as little-endian float32s
func EncodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(f))
	}
	return buf
}

// DecodeVector is the inverse of EncodeVector
func DecodeVector(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, errors.New("vector payload is not a multiple of 4 bytes")
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return v, nil
}

// Package docextract implements the binary-to-text collaborator consumed by
// the normalizer. PDF payloads are extracted with pdftotext; Word payloads
// are parsed directly from the docx archive. Results are cached per payload
// hash and concurrent extractions of the same payload are collapsed.
package docextract

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Extractor converts PDF and Word payloads into plain text.
type Extractor struct {
	cache   map[string][]byte
	cacheMu sync.RWMutex
	group   singleflight.Group
}

// NewExtractor creates an Extractor with an empty cache.
func NewExtractor() *Extractor {
	return &Extractor{
		cache: make(map[string][]byte),
	}
}

// ExtractText extracts the plain text of a binary document payload. The
// sourceType decides the parser; unsupported types are an error so callers
// never silently receive empty text.
func (e *Extractor) ExtractText(ctx context.Context, content []byte, sourceType string) ([]byte, error) {
	key := cacheKey(content, sourceType)

	e.cacheMu.RLock()
	if cached, ok := e.cache[key]; ok {
		e.cacheMu.RUnlock()
		return cached, nil
	}
	e.cacheMu.RUnlock()

	result, err, _ := e.group.Do(key, func() (any, error) {
		e.cacheMu.RLock()
		if cached, ok := e.cache[key]; ok {
			e.cacheMu.RUnlock()
			return cached, nil
		}
		e.cacheMu.RUnlock()

		text, err := e.parse(ctx, content, sourceType)
		if err != nil {
			return nil, err
		}

		e.cacheMu.Lock()
		e.cache[key] = text
		e.cacheMu.Unlock()
		return text, nil
	})
	if err != nil {
		return nil, err
	}

	return result.([]byte), nil
}

func (e *Extractor) parse(ctx context.Context, content []byte, sourceType string) ([]byte, error) {
	switch strings.ToLower(sourceType) {
	case "pdf":
		return parsePDF(ctx, content)
	case "doc", "docx", "word":
		return parseDocx(content)
	default:
		return nil, fmt.Errorf("unsupported binary source type: %s", sourceType)
	}
}

func cacheKey(content []byte, sourceType string) string {
	sum := sha256.Sum256(content)
	return sourceType + ":" + hex.EncodeToString(sum[:])
}

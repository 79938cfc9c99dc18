// Package knowledge supplies the dietary-guideline text that grounds the
// nutrition assessment.
package knowledge

import (
	"crypto/md5"
	"encoding/hex"
	"errors"
	"log/slog"
	"os"
	"sync"
)

// Source reads a guideline PDF and caches its cleaned text by content hash,
// so an unchanged file is parsed once.
type Source struct {
	path    string
	extract func([]byte) (string, error)

	mu    sync.Mutex
	cache map[string]string
}

func NewSource(path string) *Source {
	return &Source{
		path:    path,
		extract: ExtractPDFText,
		cache:   make(map[string]string),
	}
}

// Text returns the cleaned guideline text. A missing or unreadable PDF
// yields empty knowledge and a warning.
func (s *Source) Text() string {
	if s.path == "" {
		return ""
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			slog.Warn("diet PDF not found, proceeding without diet knowledge", "path", s.path)
		} else {
			slog.Warn("failed to read diet PDF", "path", s.path, "error", err)
		}
		return ""
	}

	sum := md5.Sum(data)
	key := hex.EncodeToString(sum[:])

	s.mu.Lock()
	defer s.mu.Unlock()

	if text, ok := s.cache[key]; ok {
		return text
	}

	raw, err := s.extract(data)
	if err != nil {
		slog.Warn("failed to extract diet PDF text", "path", s.path, "error", err)
		return ""
	}

	text := Clean(raw)
	s.cache[key] = text
	slog.Info("diet knowledge loaded", "path", s.path, "chars", len(text), "md5", key)
	return text
}

// Package extract turns uploaded document bytes into plain text. Adapters
// are keyed by lowercase file extension; anything unregistered is an
// unsupported format.
package extract

import (
	"errors"
	"path/filepath"
	"strings"
)

var ErrUnsupported = errors.New("unsupported file format")

// Extractor converts one document format to plain text.
type Extractor interface {
	Extract(data []byte) (string, error)
}

// Registry maps file extensions to extractors.
type Registry struct {
	byExt map[string]Extractor
}

func NewRegistry() *Registry {
	r := &Registry{byExt: make(map[string]Extractor)}
	r.Register(".pdf", PDFExtractor{})
	r.Register(".txt", PlainExtractor{})
	r.Register(".md", PlainExtractor{})
	return r
}

func (r *Registry) Register(ext string, e Extractor) {
	r.byExt[strings.ToLower(ext)] = e
}

// Supported reports whether the filename's extension has an extractor.
func (r *Registry) Supported(filename string) bool {
	_, ok := r.byExt[strings.ToLower(filepath.Ext(filename))]
	return ok
}

// Extract picks the adapter for the filename's extension and runs it.
func (r *Registry) Extract(filename string, data []byte) (string, error) {
	e, ok := r.byExt[strings.ToLower(filepath.Ext(filename))]
	if !ok {
		return "", ErrUnsupported
	}
	return e.Extract(data)
}

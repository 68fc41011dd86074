// Package pdf combines and chunks PDF documents entirely in memory.
package pdf

import (
	"bytes"
	"errors"
	"fmt"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

var (
	// ErrNoLoadableDocuments is returned when not a single input document could be read as a PDF.
	ErrNoLoadableDocuments = errors.New("no loadable PDF documents")
	// ErrEmptyBuffer is returned for a zero-length document buffer.
	ErrEmptyBuffer = errors.New("empty PDF buffer")
)

var disableConfigDir sync.Once

// newConfiguration returns a fresh pdfcpu configuration. pdfcpu operations mutate the
// configuration they are given, so one is created per call.
func newConfiguration() *model.Configuration {
	disableConfigDir.Do(api.DisableConfigDir)
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

// PageCount reads buf as a PDF and returns its number of pages.
func PageCount(buf []byte) (int, error) {
	if len(buf) == 0 {
		return 0, ErrEmptyBuffer
	}
	n, err := api.PageCount(bytes.NewReader(buf), newConfiguration())
	if err != nil {
		return 0, fmt.Errorf("failed to read PDF page count: %w", err)
	}
	return n, nil
}

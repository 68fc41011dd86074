package pdf

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// renderLayout is the subset of pdfcpu's JSON page description used by Render.
type renderLayout struct {
	Paper  string                `json:"paper"`
	Origin string                `json:"origin"`
	Pages  map[string]renderPage `json:"pages"`
}

type renderPage struct {
	Content renderContent `json:"content"`
}

type renderContent struct {
	Text []renderText `json:"text"`
}

type renderText struct {
	Value    string     `json:"value"`
	Position [2]float64 `json:"pos"`
	Font     renderFont `json:"font"`
}

type renderFont struct {
	Name string `json:"name"`
	Size int    `json:"size"`
}

// Render creates an A4 PDF with one page per entry in pages, each showing its text in Helvetica.
// It is used for placeholder pages that stand in for documents that could not be loaded.
func Render(pages []string) ([]byte, error) {
	if len(pages) == 0 {
		return nil, errors.New("no pages to render")
	}

	layout := renderLayout{Paper: "A4", Origin: "UpperLeft", Pages: make(map[string]renderPage, len(pages))}
	for i, text := range pages {
		if text == "" {
			text = " "
		}
		layout.Pages[strconv.Itoa(i+1)] = renderPage{Content: renderContent{Text: []renderText{{
			Value:    text,
			Position: [2]float64{50, 60},
			Font:     renderFont{Name: "Helvetica", Size: 11},
		}}}}
	}

	desc, err := json.Marshal(layout)
	if err != nil {
		return nil, fmt.Errorf("failed to encode page layout: %w", err)
	}
	var out bytes.Buffer
	if err := api.Create(nil, bytes.NewReader(desc), &out, newConfiguration()); err != nil {
		return nil, fmt.Errorf("failed to render PDF: %w", err)
	}
	return out.Bytes(), nil
}

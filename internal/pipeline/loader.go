package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
)

// ErrDocumentNotFound is returned by loaders when the file behind a location does not exist.
var ErrDocumentNotFound = errors.New("document not found")

// Loader resolves a document location to its bytes.
type Loader interface {
	Load(ctx context.Context, location string) ([]byte, error)
}

// FileLoader reads documents from the local filesystem.
type FileLoader struct{}

func (FileLoader) Load(_ context.Context, location string) ([]byte, error) {
	buf, err := os.ReadFile(location)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", location, ErrDocumentNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", location, err)
	}
	return buf, nil
}

// RoutingLoader sends gs:// locations to Remote and everything else to Local.
type RoutingLoader struct {
	Local  Loader
	Remote Loader
}

func (l RoutingLoader) Load(ctx context.Context, location string) ([]byte, error) {
	if strings.HasPrefix(location, "gs://") {
		if l.Remote == nil {
			return nil, fmt.Errorf("no loader configured for %s", location)
		}
		return l.Remote.Load(ctx, location)
	}
	if l.Local == nil {
		return FileLoader{}.Load(ctx, location)
	}
	return l.Local.Load(ctx, location)
}

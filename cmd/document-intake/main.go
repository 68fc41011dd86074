package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	"github.com/Lllllllleong/duediligenceflow/internal/services"
	cloudevents "github.com/cloudevents/sdk-go/v2"
)

var (
	intakeInstance *services.IntakeFunction
	once           sync.Once
	initErr        error
)

func init() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	functions.CloudEvent("RegisterDocument", registerDocument)
}

// main is required by the Go Functions Framework.
func main() {}

// registerDocument handles google.cloud.storage.object.v1.finalized events.
func registerDocument(ctx context.Context, e cloudevents.Event) error {
	once.Do(func() {
		intakeInstance, initErr = services.NewIntakeFunction(context.Background())
	})
	if initErr != nil {
		slog.Error("Critical error during function initialization", "error", initErr)
		return initErr
	}

	var gcsEvent services.GCSEvent
	if err := json.Unmarshal(e.Data(), &gcsEvent); err != nil {
		slog.Error("Failed to unmarshal event data", "error", err, "eventId", e.ID(), "data", string(e.Data()))
		return fmt.Errorf("json.Unmarshal: %w", err)
	}
	return intakeInstance.Process(ctx, gcsEvent)
}

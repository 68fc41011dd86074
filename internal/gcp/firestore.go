// Package gcp builds the Google Cloud clients shared by the functions and adapts them to the
// interfaces of the processing packages.
package gcp

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
)

// NewFirestoreClient creates a Firestore client for projectID, using the named database when
// database is not empty.
func NewFirestoreClient(ctx context.Context, projectID, database string) (*firestore.Client, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID must be provided to create a firestore client")
	}

	var (
		client *firestore.Client
		err    error
	)
	if database == "" {
		client, err = firestore.NewClient(ctx, projectID)
	} else {
		client, err = firestore.NewClientWithDatabase(ctx, projectID, database)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create Firestore client: %w", err)
	}
	return client, nil
}

package indexer

import (
	"context"
	"fmt"

	"github.com/papercomputeco/vellum/pkg/storage"
	"github.com/papercomputeco/vellum/pkg/vector"
)

// SaveSnapshot writes the store's snapshot to the vector index section.
func SaveSnapshot(ctx context.Context, d storage.Driver, store vector.Store) error {
	if err := storage.SetJSON(ctx, d, storage.SectionVectorIndex, store.Snapshot()); err != nil {
		return fmt.Errorf("saving vector index: %w", err)
	}
	return nil
}

// LoadSnapshot restores the store from the vector index section. It reports
// false when no index has been saved yet.
func LoadSnapshot(ctx context.Context, d storage.Driver, store vector.Store) (bool, error) {
	var snap vector.Snapshot
	found, err := storage.GetJSON(ctx, d, storage.SectionVectorIndex, &snap)
	if err != nil {
		return false, fmt.Errorf("loading vector index: %w", err)
	}
	if !found {
		return false, nil
	}
	store.Restore(snap)
	return true, nil
}

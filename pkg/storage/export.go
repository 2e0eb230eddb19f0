package storage

import (
	"context"
	"encoding/json"
	"errors"
)

// Export assembles every well-known section into one document:
//
//	{"settings": ..., "vectorIndex": ..., "threads": ...}
//
// Missing sections are emitted as null.
func Export(ctx context.Context, d Driver) ([]byte, error) {
	out := struct {
		Settings    json.RawMessage `json:"settings"`
		VectorIndex json.RawMessage `json:"vectorIndex"`
		Threads     json.RawMessage `json:"threads"`
	}{}

	for section, dst := range map[string]*json.RawMessage{
		SectionSettings:    &out.Settings,
		SectionVectorIndex: &out.VectorIndex,
		SectionThreads:     &out.Threads,
	} {
		data, err := d.Get(ctx, section)
		if err != nil {
			var nf ErrNotFound
			if errors.As(err, &nf) {
				continue
			}
			return nil, err
		}
		*dst = data
	}

	return json.MarshalIndent(out, "", "  ")
}

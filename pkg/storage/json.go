package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// GetJSON decodes section into v. found is false, with a nil error, when the
// section was never written.
func GetJSON(ctx context.Context, d Driver, section string, v any) (found bool, err error) {
	data, err := d.Get(ctx, section)
	if err != nil {
		var nf ErrNotFound
		if errors.As(err, &nf) {
			return false, nil
		}
		return false, err
	}

	if err := json.Unmarshal(data, v); err != nil {
		return true, fmt.Errorf("decoding section %s: %w", section, err)
	}
	return true, nil
}

// SetJSON encodes v and writes it to section.
func SetJSON(ctx context.Context, d Driver, section string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding section %s: %w", section, err)
	}
	return d.Set(ctx, section, data)
}

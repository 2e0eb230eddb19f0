package storage

// ErrNotFound is returned when a section was never written.
type ErrNotFound struct {
	Section string
}

func (e ErrNotFound) Error() string {
	if e.Section == "" {
		return "section not found"
	}

	return "section not found: " + e.Section
}

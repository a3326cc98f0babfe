package store

// Entry is a single key/value row.
type Entry struct {
	Key       string
	Value     string
	UpdatedAt int64
}

package model

// ListOptions configures history queries with pagination and filtering.
type ListOptions struct {
	Limit     int
	Offset    int
	Checksum  string      // Optional MSB filter
	ProjectID string      // Optional project filter
	Status    EventStatus // Optional status filter
}

// DefaultListOptions returns sensible defaults.
func DefaultListOptions() ListOptions {
	return ListOptions{Limit: 20, Offset: 0}
}

// Clamp enforces limits (max 500, min 1).
func (o *ListOptions) Clamp() {
	if o.Limit <= 0 {
		o.Limit = 20
	}
	if o.Limit > 500 {
		o.Limit = 500
	}
	if o.Offset < 0 {
		o.Offset = 0
	}
}

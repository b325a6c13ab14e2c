package model

// Status is the outcome of resolving one redirect link.
type Status int

const (
	// StatusUnresolved means the link was left unchanged in the output
	// because its redirect chain could not be followed.
	StatusUnresolved Status = iota

	// StatusResolved means the link was replaced by its final destination.
	StatusResolved
)

// String returns the lower-case status name used in reports and storage.
func (s Status) String() string {
	switch s {
	case StatusResolved:
		return "resolved"
	case StatusUnresolved:
		return "unresolved"
	default:
		return "unknown"
	}
}

// ParseStatus converts a stored status name back into a Status.
// Unknown names map to StatusUnresolved.
func ParseStatus(s string) Status {
	if s == StatusResolved.String() {
		return StatusResolved
	}
	return StatusUnresolved
}

// MarshalText implements encoding.TextMarshaler so JSON reports carry names.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Status) UnmarshalText(text []byte) error {
	*s = ParseStatus(string(text))
	return nil
}

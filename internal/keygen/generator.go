package keygen

import "fmt"

// Generator produces unique object key segments for uploaded assets.
type Generator interface {
	Generate() (string, error)
	Validate(id string) (bool, string) // (valid, reason)
}

// New returns the generator for kind ("ulid" or "uuid"). An empty kind selects ulid.
func New(kind string) (Generator, error) {
	switch kind {
	case "", "ulid":
		return NewULIDGenerator(), nil
	case "uuid":
		return NewUUIDGenerator(), nil
	default:
		return nil, fmt.Errorf("unsupported key generator: %s", kind)
	}
}

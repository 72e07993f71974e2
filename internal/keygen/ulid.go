package keygen

import (
	"crypto/rand"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
)

// ULIDGenerator generates lexicographically sortable keys, so newer uploads list last.
type ULIDGenerator struct{}

func NewULIDGenerator() *ULIDGenerator {
	return &ULIDGenerator{}
}

func (g *ULIDGenerator) Generate() (string, error) {
	id, err := ulid.New(ulid.Timestamp(time.Now()), rand.Reader)
	if err != nil {
		return "", fmt.Errorf("failed to generate ULID: %w", err)
	}
	return id.String(), nil
}

func (g *ULIDGenerator) Validate(id string) (bool, string) {
	if len(id) != ulid.EncodedSize {
		return false, fmt.Sprintf("expected length %d, got %d", ulid.EncodedSize, len(id))
	}
	if _, err := ulid.Parse(id); err != nil {
		return false, fmt.Sprintf("invalid ULID format: %v", err)
	}
	return true, ""
}

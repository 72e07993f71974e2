package keygen

import (
	"fmt"

	"github.com/google/uuid"
)

// UUIDGenerator generates UUID v4 keys.
type UUIDGenerator struct{}

func NewUUIDGenerator() *UUIDGenerator {
	return &UUIDGenerator{}
}

func (g *UUIDGenerator) Generate() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("failed to generate UUID: %w", err)
	}
	return id.String(), nil
}

func (g *UUIDGenerator) Validate(id string) (bool, string) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return false, fmt.Sprintf("invalid UUID format: %v", err)
	}
	if parsed.Version() != 4 {
		return false, fmt.Sprintf("expected UUID v4, got v%d", parsed.Version())
	}
	return true, ""
}

package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorConstants(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{"ErrUnauthenticated", ErrUnauthenticated, "unauthenticated"},
		{"ErrInvalidArgument", ErrInvalidArgument, "invalid argument"},
		{"ErrNotFound", ErrNotFound, "not found"},
		{"ErrConflict", ErrConflict, "conflict"},
		{"ErrRateLimited", ErrRateLimited, "rate limited"},
		{"ErrPersistence", ErrPersistence, "persistence failure"},
		{"ErrInternal", ErrInternal, "internal error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Error() != tt.expected {
				t.Errorf("Expected %s to be %q, got %q", tt.name, tt.expected, tt.err.Error())
			}
		})
	}
}

func TestErrorIs(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		target   error
		expected bool
	}{
		{"wrapped not found", fmt.Errorf("op=repo.get: %w", ErrNotFound), ErrNotFound, true},
		{"wrapped persistence", fmt.Errorf("op=answer.upsert: %w", ErrPersistence), ErrPersistence, true},
		{"double wrapped keeps cause", fmt.Errorf("op=answer.SubmitMain: %w: %w", ErrPersistence, ErrConflict), ErrConflict, true},
		{"unauthenticated is not not found", ErrUnauthenticated, ErrNotFound, false},
		{"persistence is not internal", ErrPersistence, ErrInternal, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if errors.Is(tt.err, tt.target) != tt.expected {
				t.Errorf("Expected errors.Is(%v, %v) to be %v, got %v", tt.err, tt.target, tt.expected, !tt.expected)
			}
		})
	}
}

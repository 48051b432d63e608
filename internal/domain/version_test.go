package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecideVersion(t *testing.T) {
	tests := []struct {
		name     string
		local    int64
		incoming int64
		want     VersionDecision
	}{
		{"successor applies", 1, 2, ApplyEvent},
		{"creation applies to empty replica", -1, 0, ApplyEvent},
		{"duplicate skips", 2, 2, SkipEvent},
		{"older skips", 5, 1, SkipEvent},
		{"gap holds", 1, 3, HoldEvent},
		{"creation ahead of empty replica holds", -1, 2, HoldEvent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DecideVersion(tt.local, tt.incoming))
		})
	}
}

package idgen

import (
	"strings"
	"testing"

	"github.com/daybookhq/daybook/internal/types"
)

func TestEncodeBase36(t *testing.T) {
	tests := []struct {
		name   string
		data   []byte
		length int
		want   string
	}{
		{"zero pads", []byte{0}, 4, "0000"},
		{"single byte", []byte{35}, 2, "0z"},
		{"36 rolls over", []byte{36}, 2, "10"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EncodeBase36(tt.data, tt.length); got != tt.want {
				t.Errorf("EncodeBase36(%v, %d) = %q, want %q", tt.data, tt.length, got, tt.want)
			}
		})
	}
}

func TestNewIDPrefix(t *testing.T) {
	id := NewID(types.TypeTask)
	if !strings.HasPrefix(id, "task-") {
		t.Errorf("expected task- prefix, got %q", id)
	}
}

func TestNewIDUniqueness(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 10000; i++ {
		id := NewID(types.TypeThought)
		if seen[id] {
			t.Fatalf("duplicate ID generated: %q", id)
		}
		seen[id] = true
	}
}

package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanDecrement(t *testing.T) {
	cases := []struct {
		name      string
		current   int
		requested int
		want      bool
	}{
		{"plenty", 10, 3, true},
		{"exact", 5, 5, true},
		{"short by one", 2, 3, false},
		{"empty shelf", 0, 1, false},
		{"zero request", 4, 0, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, CanDecrement(tc.current, tc.requested))
		})
	}
}

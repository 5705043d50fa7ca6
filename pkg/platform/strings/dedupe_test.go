package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDedupeAndTrim(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{name: "nil input encodes as empty", in: nil, want: []string{}},
		{name: "trims and drops blanks", in: []string{" SDGT ", "", "  "}, want: []string{"SDGT"}},
		{name: "keeps first occurrence", in: []string{"IRAN", "SDGT", "IRAN "}, want: []string{"IRAN", "SDGT"}},
		{name: "case sensitive", in: []string{"Denial", "DENIAL"}, want: []string{"Denial", "DENIAL"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DedupeAndTrim(tt.in))
		})
	}
}

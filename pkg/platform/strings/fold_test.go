package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUpperASCIIFolding(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "empty", input: "", expected: ""},
		{name: "strips acute accent", input: "Álava", expected: "ALAVA"},
		{name: "folds eñe", input: "A Coruña", expected: "A CORUNA"},
		{name: "strips diaeresis and grave", input: "Lleida Güell València", expected: "LLEIDA GUELL VALENCIA"},
		{name: "collapses whitespace", input: "  calle   mayor \t 15 ", expected: "CALLE MAYOR 15"},
		{name: "keeps separators", input: "Araba/Álava", expected: "ARABA/ALAVA"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, UpperASCIIFolding(tt.input))
		})
	}
}

func TestDedupeFolded(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		expected []string
	}{
		{name: "nil slice", input: nil, expected: nil},
		{name: "empty slice", input: []string{}, expected: []string{}},
		{
			name:     "accent variants collapse to first",
			input:    []string{"Álava", "ALAVA", "alava", "Araba"},
			expected: []string{"Álava", "Araba"},
		},
		{
			name:     "drops blanks and trims",
			input:    []string{"  Madrid ", "", "   ", "madrid"},
			expected: []string{"Madrid"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DedupeFolded(tt.input))
		})
	}
}

package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPreprocessContent(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "strips header before abstract marker",
			in:   "J Clin Med. 2024 Jan;13(2):456.\nABSTRACT Background: something useful.",
			want: "ABSTRACT Background: something useful.",
		},
		{
			name: "strips header before objectives marker",
			in:   "Some journal noise\nOBJECTIVES We investigated X.",
			want: "OBJECTIVES We investigated X.",
		},
		{
			name: "strips trailing pmid suffix",
			in:   "ABSTRACT Findings were positive.\nPMID: 38412345 [PubMed - in process]",
			want: "ABSTRACT Findings were positive.",
		},
		{
			name: "no marker leaves text intact",
			in:   "Plain abstract text without any markers.",
			want: "Plain abstract text without any markers.",
		},
		{
			name: "both ends stripped",
			in:   "Header noise. ABSTRACT Core content here. PMID: 1 DOI: x",
			want: "ABSTRACT Core content here.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PreprocessContent(tt.in))
		})
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abc", 10))
	assert.Equal(t, "abc", Truncate("abcdef", 3))
	assert.Equal(t, "abcdef", Truncate("abcdef", 0), "max <= 0 means no truncation")

	// never cut inside a multi-byte rune
	s := strings.Repeat("ä", 10)
	cut := Truncate(s, 5)
	assert.Equal(t, "ää", cut)
}

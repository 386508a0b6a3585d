package grader

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"lowercases", "Tokyo", "tokyo"},
		{"trims whitespace", "  Tokyo  ", "tokyo"},
		{"folds full-width letters and digits", "Ａ１", "a1"},
		{"folds full-width word", "Ｔｏｋｙｏ", "tokyo"},
		{"empty stays empty", "", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Normalize(tc.in))
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{"Tokyo", "Ａ１", "  ｍｏＵＮＴ Fuji  ", "漢字とカナ", ""}
	for _, in := range inputs {
		once := Normalize(in)
		assert.Equal(t, once, Normalize(once), "Normalize must be idempotent for %q", in)
	}
}

func TestGrade(t *testing.T) {
	cases := []struct {
		name      string
		expected  string
		submitted string
		want      bool
	}{
		{"exact after lowercasing", "Tokyo", "tokyo", true},
		{"exact after width fold", "Tokyo", "Ｔｏｋｙｏ", true},
		{"near miss below threshold", "Tokyo", "Tokio", false},
		{"single dropped letter passes", "Jupiter", "jupitr", true},
		{"unrelated answer fails", "Tokyo", "Osaka", false},
		{"empty submission fails", "Tokyo", "", false},
		{"empty expected matches only empty", "", "", true},
		{"empty expected rejects non-empty", "", "anything", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Grade(tc.expected, tc.submitted))
		})
	}
}

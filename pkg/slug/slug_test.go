package slug

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerate(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"simple", "Match Highlights", "match-highlights"},
		{"punctuation", "Final!!! (Overtime)", "final-overtime"},
		{"accents folded", "Séance d'entraînement", "seance-d-entrainement"},
		{"multiple spaces", "Team   Photo   2026", "team-photo-2026"},
		{"leading trailing junk", "  --Warmup--  ", "warmup"},
		{"already clean", "pre-season-drills", "pre-season-drills"},
		{"empty", "", ""},
		{"only symbols", "!!!", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Generate(tt.input))
		})
	}
}

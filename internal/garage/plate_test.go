package garage

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizePlate(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"already clean", "ABC 123", "ABC 123"},
		{"lower case", "abc 123", "ABC 123"},
		{"punctuation", "ab-c.1#23", "ABC123"},
		{"surrounding spaces", "  xyz 789 ", "XYZ 789"},
		{"non ascii", "ÄBC 1２3", "BC 13"},
		{"nothing left", "!!--", ""},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizePlate(tt.input))
		})
	}
}

func TestRandomPlateFormat(t *testing.T) {
	format := regexp.MustCompile(`^[A-Z]{3} [0-9]{3}$`)
	for range 50 {
		assert.Regexp(t, format, RandomPlate())
	}
}

func TestRandomPlateUsesSource(t *testing.T) {
	assert.Equal(t, "AAA 000", randomPlate(func(int) int { return 0 }))
	assert.Equal(t, "ZZZ 999", randomPlate(func(n int) int { return n - 1 }))
}

func TestRandomPlateSurvivesSanitize(t *testing.T) {
	p := RandomPlate()
	assert.Equal(t, p, SanitizePlate(p))
}

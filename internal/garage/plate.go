package garage

import (
	"math/rand/v2"
	"regexp"
	"strings"
)

const (
	plateLetters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	plateDigits  = "0123456789"
)

var plateDisallowed = regexp.MustCompile(`[^a-zA-Z0-9 ]`)

// SanitizePlate normalises user input into a plate: anything other than
// ASCII letters, digits and spaces is dropped, letters are upper-cased and
// surrounding spaces trimmed. The garage itself never calls it.
func SanitizePlate(input string) string {
	cleaned := plateDisallowed.ReplaceAllString(input, "")
	return strings.TrimSpace(strings.ToUpper(cleaned))
}

// RandomPlate returns a plate such as "KQZ 407".
func RandomPlate() string {
	return randomPlate(rand.IntN)
}

func randomPlate(intn func(int) int) string {
	var b strings.Builder
	b.Grow(7)
	for range 3 {
		b.WriteByte(plateLetters[intn(len(plateLetters))])
	}
	b.WriteByte(' ')
	for range 3 {
		b.WriteByte(plateDigits[intn(len(plateDigits))])
	}
	return b.String()
}

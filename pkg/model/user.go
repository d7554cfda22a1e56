package model

import (
	"strings"
	"unicode"
)

const MaxUsernameLength = 32

// NormalizeUsername trims a client-supplied name, strips control characters
// and truncates it to MaxUsernameLength runes. Any name is accepted; the
// result may be empty.
func NormalizeUsername(name string) string {
	name = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, name)
	name = strings.TrimSpace(name)
	if r := []rune(name); len(r) > MaxUsernameLength {
		name = strings.TrimSpace(string(r[:MaxUsernameLength]))
	}
	return name
}

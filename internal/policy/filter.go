// Package policy implements the content filter applied to user text before it
// reaches the generation provider. Checks are pure and ordered: length first,
// then personal information.
package policy

import (
	"fmt"
	"regexp"
	"unicode/utf8"
)

// Rejection kinds.
const (
	KindTooLong      = "too_long"
	KindPersonalInfo = "personal_info"
)

// DefaultMaxRunes is the limit used for single-field input.
const DefaultMaxRunes = 5000

// phoneRE matches Korean phone numbers, with or without dashes, anywhere in the
// text. Numbers written with spaces or dots are not detected.
var phoneRE = regexp.MustCompile(`(\+82|0)[1-9][0-9]{1,2}-?[0-9]{3,4}-?[0-9]{4}`)

// Rejection describes why a text was refused.
type Rejection struct {
	Kind    string
	Message string
}

func (r *Rejection) Error() string { return r.Message }

// Validate returns nil when text is acceptable. maxRunes <= 0 falls back to
// DefaultMaxRunes.
func Validate(text string, maxRunes int) *Rejection {
	if maxRunes <= 0 {
		maxRunes = DefaultMaxRunes
	}
	if utf8.RuneCountInString(text) > maxRunes {
		return &Rejection{
			Kind:    KindTooLong,
			Message: fmt.Sprintf("text is too long: max %d characters", maxRunes),
		}
	}
	if phoneRE.MatchString(text) {
		return &Rejection{
			Kind:    KindPersonalInfo,
			Message: "text must not contain personal information such as phone numbers",
		}
	}
	return nil
}

// ContainsPhoneNumber reports whether text holds something shaped like a
// phone number.
func ContainsPhoneNumber(text string) bool {
	return phoneRE.MatchString(text)
}

package domain

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var ErrInvalidPayerPhone = errors.New("invalid payer phone number")

// canonical local subscriber number: country code plus a mobile prefix.
var phonePattern = regexp.MustCompile(`^254[17]\d{8}$`)

// NormalizePhone canonicalizes a payer contact to the 2547XXXXXXXX /
// 2541XXXXXXXX form the gateway accepts. Accepted inputs are the local
// 07.../01... form, the +254... international form, and the already
// canonical form, with spaces and dashes ignored.
func NormalizePhone(raw string) (string, error) {
	s := strings.NewReplacer(" ", "", "-", "").Replace(strings.TrimSpace(raw))
	s = strings.TrimPrefix(s, "+")
	if len(s) == 10 && s[0] == '0' {
		s = "254" + s[1:]
	}
	if !phonePattern.MatchString(s) {
		return "", fmt.Errorf("%w: %q", ErrInvalidPayerPhone, raw)
	}
	return s, nil
}

// Initiation is the correlation pair returned by a gateway that accepted
// a push charge request. It says nothing about eventual confirmation.
type Initiation struct {
	RequestID  string
	CheckoutID string
}

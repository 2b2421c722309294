package validation

import (
	"net/url"
	"regexp"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// isValidEmail matches /^[^\s@]+@[^\s@]+\.[^\s@]+$/
var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Fullname: letters, spaces, hyphens, apostrophes only.
var fullnameRe = regexp.MustCompile(`^[A-Za-z\s\-']+$`)

func IsValidEmail(email string) bool {
	return emailRe.MatchString(email)
}

// IsValidPassword requires:
// - at least 8 characters
// - at least one letter
// - at least one number
// - at least one special character
func IsValidPassword(password string) bool {
	if len(password) < 8 {
		return false
	}
	hasLetter, hasDigit, hasSpecial := false, false, false
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			hasSpecial = true
		}
	}
	return hasLetter && hasDigit && hasSpecial
}

func IsValidFullname(fullname string) bool {
	return fullname != "" && fullnameRe.MatchString(fullname)
}

var minMoney = decimal.RequireFromString("0.01")

// IsValidMoney accepts positive amounts of at least one cent with no fractional cents.
func IsValidMoney(d decimal.Decimal) bool {
	return d.GreaterThanOrEqual(minMoney) && HasCentPrecision(d)
}

// HasCentPrecision reports whether d has at most two decimal places.
func HasCentPrecision(d decimal.Decimal) bool {
	return d.Equal(d.Round(2))
}

// IsValidImageURL accepts absolute http(s) URLs.
func IsValidImageURL(s string) bool {
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil {
		return false
	}
	return (u.Scheme == "https" || u.Scheme == "http") && u.Host != ""
}

package utils

import (
	"net/url"
	"strings"
)

// BuildWhatsAppLink returns a wa.me share link for phone with text prefilled.
// Formatting characters are stripped from the number; an empty result means
// the phone had no digits.
func BuildWhatsAppLink(phone, text string) string {
	var digits strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	if digits.Len() == 0 {
		return ""
	}
	link := "https://wa.me/" + digits.String()
	if text != "" {
		link += "?text=" + url.QueryEscape(text)
	}
	return link
}

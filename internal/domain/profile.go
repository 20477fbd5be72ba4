package domain

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Profile maps an identity to its organization and display name.
type Profile struct {
	ID       string `json:"id"`
	FullName string `json:"full_name"`
	OrgID    string `json:"org_id"`
}

// Initial is the avatar letter for a display name.
func Initial(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "?"
	}
	r, _ := utf8.DecodeRuneInString(name)
	return string(unicode.ToUpper(r))
}

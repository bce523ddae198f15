package models

import "github.com/google/uuid"

// CanonicalID returns the lowercase hyphenated form of a UUID. Upper case,
// braced and urn:uuid: spellings all map to the same value; anything that is
// not a UUID reports false.
func CanonicalID(raw string) (string, bool) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return "", false
	}
	return id.String(), true
}

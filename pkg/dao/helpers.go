package dao

import (
	uuid2 "github.com/google/uuid"
)

// UuidifyString parses a uuid, an unparsable value becomes the nil uuid so it never matches a row
func UuidifyString(possibleUuid string) uuid2.UUID {
	uuid, err := uuid2.Parse(possibleUuid)
	if err != nil {
		return uuid2.Nil
	}
	return uuid
}

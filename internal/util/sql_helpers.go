package util

import (
	"database/sql"
)

// StringToNullString converts a string to sql.NullString.
// An empty string is treated as NULL.
func StringToNullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{} // Valid is false, String is ""
	}
	return sql.NullString{String: s, Valid: true}
}

// BoolToInt converts a bool to the 0/1 flag stored in NUMBER(1) and INTEGER columns.
func BoolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

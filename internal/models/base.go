// Package models defines GORM database models for camarr entities.
package models

import "time"

// StrPtr returns a pointer to a string value.
func StrPtr(s string) *string {
	return &s
}

// IntPtr returns a pointer to an int value.
func IntPtr(i int) *int {
	return &i
}

// StrVal returns the value of a string pointer, or "" if nil.
func StrVal(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// IntValDefault returns the value of an int pointer with a custom default.
func IntValDefault(i *int, defaultVal int) int {
	if i == nil {
		return defaultVal
	}
	return *i
}

// Time is an alias for time.Time used in models.
type Time = time.Time

// Now returns the current time in UTC. All persisted timestamps are UTC.
func Now() Time {
	return time.Now().UTC()
}

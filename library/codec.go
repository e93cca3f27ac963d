package library

import (
	"strconv"
	"strings"
)

// Field is one value handed to EncodeRecord. Quoted fields are wrapped in
// double quotes on output; integers are written bare.
type Field struct {
	Value  string
	Quoted bool
}

// Text returns a quoted free-text field.
func Text(s string) Field { return Field{Value: s, Quoted: true} }

// Int returns a bare integer field.
func Int(n int) Field { return Field{Value: strconv.Itoa(n)} }

// DecodeRecord splits one line into fields.
//
// A double quote toggles the in-quotes state and is never emitted; a comma is
// a separator only outside quotes. Every field is then passed through
// CleanField, so quotes, apostrophes and backslashes never survive a read.
// Titles containing a literal quote therefore lose it on every cycle.
func DecodeRecord(line string) []string {
	var (
		fields   []string
		current  strings.Builder
		inQuotes bool
	)
	for _, r := range line {
		switch {
		case r == '"':
			inQuotes = !inQuotes
		case r == ',' && !inQuotes:
			fields = append(fields, CleanField(current.String()))
			current.Reset()
		default:
			current.WriteRune(r)
		}
	}
	return append(fields, CleanField(current.String()))
}

// EncodeRecord joins fields with ", ".
func EncodeRecord(fields ...Field) string {
	var sb strings.Builder
	for i, f := range fields {
		if i > 0 {
			sb.WriteString(", ")
		}
		if f.Quoted {
			sb.WriteByte('"')
			sb.WriteString(f.Value)
			sb.WriteByte('"')
		} else {
			sb.WriteString(f.Value)
		}
	}
	return sb.String()
}

// CleanField removes every quote, apostrophe and backslash, then trims
// surrounding spaces and tabs.
func CleanField(s string) string {
	s = strings.Map(func(r rune) rune {
		switch r {
		case '"', '\'', '\\':
			return -1
		}
		return r
	}, s)
	return strings.Trim(s, " \t")
}

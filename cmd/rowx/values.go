package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/koustreak/rowx/database"
	"github.com/koustreak/rowx/internal/errs"
)

// parseValue turns a command-line word into a bind value: null, true and
// false, integers and floats get their Go types; anything else is a string.
// A leading '=' forces the rest to be taken as a string ("=42" is "42").
func parseValue(s string) any {
	if strings.HasPrefix(s, "=") {
		return s[1:]
	}
	switch s {
	case "null":
		return nil
	case "true":
		return true
	case "false":
		return false
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && strings.ContainsAny(s, "0123456789") {
		return f
	}
	return s
}

func parseValues(words []string) []any {
	vals := make([]any, len(words))
	for i, w := range words {
		vals[i] = parseValue(w)
	}
	return vals
}

// parseRecord reads COLUMN=VALUE pairs in order.
func parseRecord(pairs []string) (database.Record, error) {
	rec := make(database.Record, 0, len(pairs))
	for _, p := range pairs {
		col, val, ok := strings.Cut(p, "=")
		if !ok || col == "" {
			return nil, errs.New(errs.ErrKindInvalidInput, fmt.Sprintf("expected COLUMN=VALUE, got %q", p))
		}
		rec = append(rec, database.Field{Column: col, Value: parseValue(val)})
	}
	return rec, nil
}

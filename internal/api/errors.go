package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// Error is a rejected backend response. Fields holds the decoded validation
// payload (field name to messages) when the body was structured JSON; for
// non-JSON bodies Fields is nil and only the status survives.
type Error struct {
	StatusCode int
	Fields     map[string][]string
}

func (e *Error) Error() string {
	msg := e.Message()
	if msg == "" {
		return fmt.Sprintf("backend returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("backend returned status %d: %s", e.StatusCode, msg)
}

// IsAuth reports whether the rejection indicates a missing or invalid token.
func (e *Error) IsAuth() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}

// Message joins every message in the payload with ", " in field-name order.
// Used by flows without a structured mapping (sign-out, password reset,
// favorite toggling).
func (e *Error) Message() string {
	if len(e.Fields) == 0 {
		return ""
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var all []string
	for _, k := range keys {
		all = append(all, e.Fields[k]...)
	}
	return strings.Join(all, ", ")
}

// FormMessage maps the rejection to a single line for a form banner, in
// priority order: non-field errors, then ingredient errors (first offending
// entry's first message), then cooking-time errors, then everything joined.
func (e *Error) FormMessage() string {
	if msgs, ok := e.Fields["non_field_errors"]; ok && len(msgs) > 0 {
		return strings.Join(msgs, ", ")
	}
	if msgs, ok := e.Fields["ingredients"]; ok && len(msgs) > 0 {
		return "Ingredients: " + msgs[0]
	}
	if msgs, ok := e.Fields["cooking_time"]; ok && len(msgs) > 0 {
		return "Cooking time: " + msgs[0]
	}
	return e.Message()
}

// decodeError turns a >= 400 response body into an *Error. The Django-style
// payload is either {"field": ["msg", ...]}, {"detail": "msg"} or, for the
// ingredients field, a list of per-entry objects where an empty object marks
// a valid entry.
func decodeError(status int, body []byte) *Error {
	apiErr := &Error{StatusCode: status}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return apiErr
	}

	fields := make(map[string][]string, len(raw))
	for key, val := range raw {
		switch key {
		case "ingredients":
			if msgs := flattenEntryErrors(val); len(msgs) > 0 {
				fields[key] = msgs
			}
		default:
			if msgs := flattenMessages(val); len(msgs) > 0 {
				fields[key] = msgs
			}
		}
	}
	if len(fields) > 0 {
		apiErr.Fields = fields
	}
	return apiErr
}

// flattenMessages accepts either a string or a list of strings.
func flattenMessages(raw json.RawMessage) []string {
	var one string
	if err := json.Unmarshal(raw, &one); err == nil {
		return []string{one}
	}
	var many []string
	if err := json.Unmarshal(raw, &many); err == nil {
		return many
	}
	return nil
}

// flattenEntryErrors handles the per-entry list shape used for ingredient
// errors: each element is an object of field→messages, empty when the entry
// had no problem. Messages of one entry are joined with ", ".
func flattenEntryErrors(raw json.RawMessage) []string {
	var entries []map[string][]string
	if err := json.Unmarshal(raw, &entries); err != nil {
		return flattenMessages(raw)
	}
	var out []string
	for _, entry := range entries {
		if len(entry) == 0 {
			continue
		}
		keys := make([]string, 0, len(entry))
		for k := range entry {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var msgs []string
		for _, k := range keys {
			msgs = append(msgs, entry[k]...)
		}
		out = append(out, strings.Join(msgs, ", "))
	}
	return out
}

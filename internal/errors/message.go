// Package errors extracts human readable messages from CRM API error bodies
package errors

import (
	"encoding/json"
	"strings"
	"unicode/utf8"
)

// maxRawMessage bounds the raw body used as a fallback message
const maxRawMessage = 256

// errorBody covers the error shapes returned by the API:
//
//	{"message": "Contact not found"}
//	{"message": ["email must be an email"], "error": "Bad Request"}
//	{"msg": "Unauthorized"}
type errorBody struct {
	Message json.RawMessage `json:"message"`
	Error   string          `json:"error"`
	Msg     string          `json:"msg"`
}

// Message returns the most specific message found in body, or a trimmed
// prefix of the raw body when it is not a recognised JSON error.
func Message(body []byte) string {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return ""
	}

	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil {
		return truncate(trimmed)
	}

	if msg := decodeMessage(eb.Message); msg != "" {
		return msg
	}
	if eb.Msg != "" {
		return eb.Msg
	}
	if eb.Error != "" {
		return eb.Error
	}
	return truncate(trimmed)
}

func decodeMessage(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		return single
	}

	var many []string
	if err := json.Unmarshal(raw, &many); err == nil {
		return strings.Join(many, "; ")
	}

	return ""
}

// truncate cuts s to at most maxRawMessage bytes on a rune boundary
func truncate(s string) string {
	if len(s) <= maxRawMessage {
		return s
	}
	cut := maxRawMessage
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}

package polls

import (
	"encoding/json"
	"fmt"
)

// fieldKind is the JSON type a required field must carry
type fieldKind int

const (
	// kindAny only requires presence
	kindAny fieldKind = iota
	kindInteger
	kindString
	kindList
)

func (k fieldKind) String() string {
	switch k {
	case kindInteger:
		return "an integer"
	case kindString:
		return "a string"
	case kindList:
		return "a list"
	default:
		return "present"
	}
}

// field is one required member of a JSON object
type field struct {
	name string
	kind fieldKind
}

var (
	pollSchema = []field{
		{"id", kindInteger},
		{"question", kindString},
		{"created_at", kindAny},
		{"owner_id", kindInteger},
		{"options", kindList},
	}
	optionSchema = []field{
		{"id", kindAny},
		{"text", kindAny},
		{"poll_id", kindAny},
	}
	voteSchema = []field{
		{"id", kindAny},
		{"user_id", kindAny},
		{"option_id", kindAny},
		{"created_at", kindAny},
	}
	resultsSchema = []field{
		{"poll_id", kindAny},
		{"question", kindAny},
		{"results", kindList},
	}
	resultEntrySchema = []field{
		{"option_id", kindInteger},
		{"text", kindString},
		{"vote_count", kindInteger},
	}
)

// matches reports whether v has the JSON type k. Integers are json.Number
// values without fraction or exponent that fit in an int64.
func (k fieldKind) matches(v any) bool {
	switch k {
	case kindInteger:
		n, ok := v.(json.Number)
		if !ok {
			return false
		}
		_, err := n.Int64()
		return err == nil
	case kindString:
		_, ok := v.(string)
		return ok
	case kindList:
		_, ok := v.([]any)
		return ok
	default:
		return true
	}
}

// checkObject verifies presence of every field first, then types, both in
// schema order. It returns the offending field and a description.
func checkObject(subject string, v any, schema []field) (string, string, bool) {
	obj, ok := v.(map[string]any)
	if !ok {
		return "", fmt.Sprintf("%s is not an object", subject), false
	}
	for _, f := range schema {
		if _, ok := obj[f.name]; !ok {
			return f.name, fmt.Sprintf("%s is missing required field: %s", subject, f.name), false
		}
	}
	for _, f := range schema {
		if !f.kind.matches(obj[f.name]) {
			return f.name, fmt.Sprintf("%s: '%s' must be %s", subject, f.name, f.kind), false
		}
	}
	return "", "", true
}

// validatePollList checks a decoded /polls payload poll by poll, each
// poll's own fields before its options.
func validatePollList(op string, doc any) error {
	list, ok := doc.([]any)
	if !ok {
		return &SchemaError{Op: op, Index: -1, OptionIndex: -1, Reason: "expected a list of polls"}
	}

	for i, item := range list {
		subject := fmt.Sprintf("poll at index %d", i)
		if name, reason, ok := checkObject(subject, item, pollSchema); !ok {
			return &SchemaError{Op: op, Index: i, OptionIndex: -1, Field: name, Reason: reason}
		}

		options := item.(map[string]any)["options"].([]any)
		for j, opt := range options {
			subject := fmt.Sprintf("poll %d, option %d", i, j)
			if name, reason, ok := checkObject(subject, opt, optionSchema); !ok {
				return &SchemaError{Op: op, Index: i, OptionIndex: j, Field: name, Reason: reason}
			}
		}
	}

	return nil
}

// validateVote checks a decoded vote payload
func validateVote(op string, doc any) error {
	if name, reason, ok := checkObject("vote", doc, voteSchema); !ok {
		return &SchemaError{Op: op, Index: -1, OptionIndex: -1, Field: name, Reason: reason}
	}
	return nil
}

// validateResults checks a decoded results payload, then each entry in order
func validateResults(op string, doc any) error {
	if name, reason, ok := checkObject("poll results", doc, resultsSchema); !ok {
		return &SchemaError{Op: op, Index: -1, OptionIndex: -1, Field: name, Reason: reason}
	}

	entries := doc.(map[string]any)["results"].([]any)
	for i, entry := range entries {
		subject := fmt.Sprintf("result %d", i)
		if name, reason, ok := checkObject(subject, entry, resultEntrySchema); !ok {
			return &SchemaError{Op: op, Index: i, OptionIndex: -1, Field: name, Reason: reason}
		}
	}

	return nil
}

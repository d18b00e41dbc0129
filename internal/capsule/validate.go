package capsule

import (
	"strings"
	"unicode/utf8"
)

// Content limits, counted in code points (runes, not bytes).
const (
	MaxPayloadRunes  = 1000
	MaxMetadataRunes = 500
	MaxKindRunes     = 20
)

// Per-creator limits.
const (
	MaxCapsulesPerCreator = 100
	MaxGroupRecipients    = 10
)

// DefaultKind is used when a creator supplies no category tag.
const DefaultKind = "standard"

// GroupKind is the fixed tag for capsules minted by group creation.
const GroupKind = "group"

// ValidationError describes why content was rejected.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Reason
}

// ValidatePayload checks the locked content: non-empty after trimming,
// at most MaxPayloadRunes code points.
func ValidatePayload(payload string) *ValidationError {
	if strings.TrimSpace(payload) == "" {
		return &ValidationError{Field: "payload", Reason: "must not be empty"}
	}
	if n := utf8.RuneCountInString(payload); n > MaxPayloadRunes {
		return &ValidationError{Field: "payload", Reason: "exceeds maximum length"}
	}
	return nil
}

// ValidateMetadata checks optional metadata. A nil pointer is always valid.
func ValidateMetadata(metadata *string) *ValidationError {
	if metadata == nil {
		return nil
	}
	if n := utf8.RuneCountInString(*metadata); n > MaxMetadataRunes {
		return &ValidationError{Field: "metadata", Reason: "exceeds maximum length"}
	}
	return nil
}

// NormalizeKind trims and lowercases a category tag, substitutes DefaultKind
// for an empty tag, and truncates to MaxKindRunes. The tag is informational
// only, so over-long input is clipped rather than rejected.
func NormalizeKind(kind string) string {
	kind = strings.ToLower(strings.TrimSpace(kind))
	if kind == "" {
		return DefaultKind
	}
	runes := []rune(kind)
	if len(runes) > MaxKindRunes {
		return string(runes[:MaxKindRunes])
	}
	return kind
}

// NormalizePrincipal trims surrounding whitespace from a principal handle.
func NormalizePrincipal(p string) string {
	return strings.TrimSpace(p)
}

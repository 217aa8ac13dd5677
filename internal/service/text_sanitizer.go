package service

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// maxSanitizePasses bounds the strip/unescape loop. Input still changing after that
// many passes is returned escaped.
const maxSanitizePasses = 4

// textSanitizer strips markup from user supplied text before it reaches the domain.
// Titles lose every tag; long-form text keeps the safe formatting subset. Entities the
// policies emit are decoded again so stored text matches what the user typed and
// length limits count characters, not escapes.
type textSanitizer struct {
	strict *bluemonday.Policy
	rich   *bluemonday.Policy
}

func newTextSanitizer() textSanitizer {
	return textSanitizer{
		strict: bluemonday.StrictPolicy(),
		rich:   bluemonday.UGCPolicy(),
	}
}

func (s textSanitizer) plain(value string) string {
	return strings.TrimSpace(settle(s.strict, value))
}

func (s textSanitizer) richText(value string) string {
	return strings.TrimSpace(settle(s.rich, value))
}

func (s textSanitizer) plainPtr(value *string) *string {
	if value == nil {
		return nil
	}
	cleaned := s.plain(*value)
	return &cleaned
}

func (s textSanitizer) richTextPtr(value *string) *string {
	if value == nil {
		return nil
	}
	cleaned := s.richText(*value)
	return &cleaned
}

// settle sanitizes and unescapes until the text stops changing, so markup smuggled
// in as entities ("&lt;script&gt;") is stripped once decoded.
func settle(policy *bluemonday.Policy, value string) string {
	current := value
	for i := 0; i < maxSanitizePasses; i++ {
		next := html.UnescapeString(policy.Sanitize(current))
		if next == current {
			return next
		}
		current = next
	}
	return policy.Sanitize(current)
}

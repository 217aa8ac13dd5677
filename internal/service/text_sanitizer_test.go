package service

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSanitizerKeepsPunctuationVerbatim(t *testing.T) {
	s := newTextSanitizer()

	require.Equal(t, `Tom's "R&D" essay`, s.plain(`Tom's "R&D" essay`))
	require.Equal(t, `5 < 6 & 7 > 3`, s.richText(`5 < 6 & 7 > 3`))
}

func TestSanitizerStripsMarkup(t *testing.T) {
	s := newTextSanitizer()

	require.Equal(t, "Essay", s.plain("<b>Essay</b>"))
	require.Equal(t, "<p>Answer</p>", s.richText("<p>Answer</p><script>alert(1)</script>"))
}

func TestSanitizerStripsEncodedMarkup(t *testing.T) {
	s := newTextSanitizer()

	require.NotContains(t, s.richText("&lt;script&gt;alert(1)&lt;/script&gt;ok"), "<script")
	require.NotContains(t, s.plain("&lt;img src=x onerror=alert(1)&gt;title"), "<img")
}

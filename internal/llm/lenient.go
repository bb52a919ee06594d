package llm

import (
	"regexp"
	"strings"
)

var (
	reFenceOpen  = regexp.MustCompile("^```[a-zA-Z]*\n")
	reFenceClose = regexp.MustCompile("\n```$")
)

// StripCodeFences removes a markdown code fence wrapped around a model reply.
func StripCodeFences(text string) string {
	s := strings.TrimSpace(text)
	s = reFenceOpen.ReplaceAllString(s, "")
	s = reFenceClose.ReplaceAllString(s, "")
	return strings.Trim(s, "`")
}

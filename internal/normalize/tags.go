package normalize

import (
	"regexp"
	"slices"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/invoice"
)

var reTagUnsafe = regexp.MustCompile(`[^a-zA-Z0-9-]`)

// ProcessTags turns a raw serial field into validated, deduplicated tags.
// Lists are taken element-wise; a bracketed string is split on commas; any other
// string is a single candidate.
func ProcessTags(tf invoice.TagField) []string {
	var candidates []string
	if tf.IsList {
		candidates = tf.List
	} else {
		candidates = splitTagText(tf.Text)
	}
	if len(candidates) == 0 {
		return nil
	}

	upper := cases.Upper(language.Und)
	out := make([]string, 0, len(candidates))
	for _, c := range candidates {
		tag := reTagUnsafe.ReplaceAllString(upper.String(c), "")
		if !validTag(tag) || slices.Contains(out, tag) {
			continue
		}
		out = append(out, tag)
	}
	return out
}

func splitTagText(raw string) []string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil
	}
	if !strings.HasPrefix(s, "[") || !strings.HasSuffix(s, "]") {
		return []string{s}
	}
	var out []string
	for _, p := range strings.Split(s[1:len(s)-1], ",") {
		p = strings.Trim(strings.Trim(strings.TrimSpace(p), "'"), `"`)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func validTag(tag string) bool {
	if len(tag) < constants.MinTagLength {
		return false
	}
	for _, bad := range constants.TagDenylist {
		if strings.Contains(tag, bad) {
			return false
		}
	}
	for _, brand := range constants.BrandPrefixes {
		if strings.HasPrefix(tag, brand) {
			return false
		}
	}
	return true
}

// itemTags gathers tags from every serial alias on the item, then from a bracketed description.
func itemTags(item invoice.LineItem) []string {
	var tags []string
	for _, tf := range item.Serials {
		tags = append(tags, ProcessTags(tf)...)
	}
	desc := item.Description().String()
	if strings.HasPrefix(strings.TrimSpace(desc), "[") {
		tags = append(tags, ProcessTags(invoice.TagField{Text: desc})...)
	}
	return uniq(tags)
}

func uniq(in []string) []string {
	out := in[:0:0]
	for _, s := range in {
		if !slices.Contains(out, s) {
			out = append(out, s)
		}
	}
	return out
}

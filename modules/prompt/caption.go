package prompt

import (
	"strings"
	"unicode"
)

const (
	captionMinWords = 2
	captionMaxWords = 4
	defaultCaption  = "MUST WATCH"
)

var stopWords = map[string]bool{
	"a": true, "an": true, "the": true, "and": true, "or": true, "but": true, "of": true, "to": true,
	"in": true, "on": true, "at": true, "for": true, "with": true, "from": true, "by": true, "about": true,
	"is": true, "are": true, "was": true, "were": true, "be": true, "been": true, "it": true, "its": true,
	"this": true, "that": true, "these": true, "those": true, "my": true, "your": true, "our": true,
	"i": true, "you": true, "we": true, "he": true, "she": true, "they": true, "me": true, "us": true,
	"how": true, "what": true, "why": true, "when": true, "do": true, "does": true, "did": true,
	"so": true, "as": true, "into": true, "than": true, "then": true, "just": true, "very": true,
	"official": true, "video": true, "ft": true, "feat": true, "episode": true, "ep": true,
}

// DeriveCaption - 명시 캡션은 대문자 그대로, 없으면 제목의 핵심 단어 2~4개
func DeriveCaption(explicit, title string) string {
	if c := strings.TrimSpace(explicit); c != "" {
		return strings.ToUpper(c)
	}

	words := splitWords(title)
	var salient []string
	for _, w := range words {
		if !stopWords[strings.ToLower(w)] {
			salient = append(salient, w)
		}
		if len(salient) == captionMaxWords-1 {
			break
		}
	}
	if len(salient) < captionMinWords {
		salient = words
		if len(salient) > captionMaxWords {
			salient = salient[:captionMaxWords]
		}
	}
	if len(salient) < captionMinWords {
		return defaultCaption
	}
	return strings.ToUpper(strings.Join(salient, " "))
}

func splitWords(s string) []string {
	var out []string
	for _, f := range strings.Fields(s) {
		w := strings.TrimFunc(f, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		if w != "" {
			out = append(out, w)
		}
	}
	return out
}

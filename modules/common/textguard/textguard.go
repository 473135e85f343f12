package textguard

import (
	"regexp"
	"strings"
)

var (
	// 신원 추정에 쓰일 수 있는 표현
	identityCue = regexp.MustCompile(`(?i)\b(?:` + strings.Join([]string{
		`skin`, `complexion`, `ethnic\w*`, `race`, `caucasian`, `asian`, `african`, `hispanic`, `latin[oa]`,
		`hair\w*`, `blonde?`, `brunette`, `bald\w*`, `beard\w*`, `mustache`, `moustache`, `stubble`,
		`freckle\w*`, `tattoo\w*`, `wrinkle\w*`, `birthmark`,
		`face shape`, `jawline`, `eye colou?r`, `(?:blue|brown|green|hazel) eyes`,
		`years? old`, `year-old`, `in (?:his|her|their) (?:\d+s|early|mid|late|twenties|thirties|forties|fifties|sixties)`,
		`named`, `(?:his|her|their) name`, `celebrit\w*`, `famous`, `resembl\w*`, `looks? like`, `look-?alike`,
		`identity`, `same (?:person|face)`, `this face`, `specific (?:person|face)`,
		`(?:white|black) (?:man|woman|guy|girl|male|female)`,
	}, "|") + `)\b`)

	sentenceSplit = regexp.MustCompile(`[.;!?]\s+|[.;!?]$|\n+`)
	clauseSplit   = regexp.MustCompile(`,\s*`)
	spaces        = regexp.MustCompile(`[ \t]{2,}`)

	imageReference = regexp.MustCompile(`(?i)\b(?:the |this |that |a |an |each |every )?(?:reference|ref|source|original|example|input|uploaded|provided|attached)\s+(?:images?|thumbnails?|photos?|pictures?|pixels|screenshots?)\b`)
)

// ScrubIdentity - 신원 단서가 포함된 절을 제거
func ScrubIdentity(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}

	var kept []string
	for _, sentence := range sentenceSplit.Split(s, -1) {
		var clauses []string
		for _, clause := range clauseSplit.Split(sentence, -1) {
			clause = strings.TrimSpace(clause)
			if clause == "" || hasIdentityCue(clause) {
				continue
			}
			clauses = append(clauses, clause)
		}
		if len(clauses) > 0 {
			kept = append(kept, strings.Join(clauses, ", "))
		}
	}
	return strings.Join(kept, "; ")
}

func hasIdentityCue(clause string) bool {
	return identityCue.MatchString(clause)
}

// RewriteImageReferences - "the reference image" 류 표현을 스타일 이름으로 치환
func RewriteImageReferences(s string) string {
	out := imageReference.ReplaceAllString(s, "the target style")
	return spaces.ReplaceAllString(out, " ")
}

// ContainsImageReference - 이미지 자체를 가리키는 표현이 남아 있는지
func ContainsImageReference(s string) bool {
	return imageReference.MatchString(s)
}

// Clean - 신원 제거 후 이미지 참조 치환
func Clean(s string) string {
	return RewriteImageReferences(ScrubIdentity(s))
}

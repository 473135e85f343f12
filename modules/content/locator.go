package content

import (
	"net/url"
	"regexp"
	"strings"

	"thumbforge-server/modules/common/apperr"
)

var (
	videoIDPatterns = []*regexp.Regexp{
		regexp.MustCompile(`youtube\.com/watch\?(?:[^#]*&)?v=([A-Za-z0-9_-]{11})`),
		regexp.MustCompile(`youtu\.be/([A-Za-z0-9_-]{11})`),
		regexp.MustCompile(`youtube\.com/embed/([A-Za-z0-9_-]{11})`),
		regexp.MustCompile(`youtube\.com/v/([A-Za-z0-9_-]{11})`),
		regexp.MustCompile(`youtube\.com/live/([A-Za-z0-9_-]{11})`),
		regexp.MustCompile(`youtube\.com/shorts/([A-Za-z0-9_-]{11})`),
	}
	videoIDShape = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)
)

// ExtractVideoID - 다양한 YouTube URL 형식에서 영상 ID 추출
// URL 형태가 아닌 입력(ID 단독 포함)은 네트워크 호출 없이 InvalidSourceError
func ExtractVideoID(locator string) (string, error) {
	trimmed := strings.TrimSpace(locator)
	if trimmed == "" {
		return "", apperr.Validation("url is required")
	}

	for _, pattern := range videoIDPatterns {
		if m := pattern.FindStringSubmatch(trimmed); m != nil {
			return m[1], nil
		}
	}

	// m.youtube.com, music.youtube.com 등 쿼리 파라미터 v=
	if u, err := url.Parse(trimmed); err == nil && strings.HasSuffix(u.Hostname(), "youtube.com") {
		if v := u.Query().Get("v"); videoIDShape.MatchString(v) {
			return v, nil
		}
	}

	return "", apperr.InvalidSource(trimmed)
}

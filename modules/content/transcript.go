package content

import (
	"context"
	"encoding/xml"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultTimedTextURL = "https://www.youtube.com/api/timedtext"

// TranscriptFetcher - 영상 자막 텍스트 조회 (없으면 빈 문자열, 에러 아님)
type TranscriptFetcher interface {
	FetchTranscript(ctx context.Context, videoID string) (string, error)
}

// TimedTextFetcher - YouTube timedtext 엔드포인트에서 자막 XML 조회
type TimedTextFetcher struct {
	baseURL    string
	language   string
	httpClient *http.Client
}

var _ TranscriptFetcher = (*TimedTextFetcher)(nil)

// NewTimedTextFetcher - baseURL이 비어 있으면 YouTube 기본값
func NewTimedTextFetcher(baseURL, language string) *TimedTextFetcher {
	if baseURL == "" {
		baseURL = defaultTimedTextURL
	}
	if language == "" {
		language = "en"
	}
	return &TimedTextFetcher{
		baseURL:    baseURL,
		language:   language,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

type timedTextDoc struct {
	Lines []struct {
		Text string `xml:",chardata"`
	} `xml:"text"`
}

// FetchTranscript - 설정된 언어로 자막 1회 조회, 세그먼트를 공백으로 연결
func (f *TimedTextFetcher) FetchTranscript(ctx context.Context, videoID string) (string, error) {
	q := url.Values{}
	q.Set("v", videoID)
	q.Set("lang", f.language)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("failed to create transcript request: %w", err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("transcript request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", nil
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("transcript request returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read transcript: %w", err)
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return "", nil
	}

	return parseTimedText(body)
}

func parseTimedText(body []byte) (string, error) {
	var doc timedTextDoc
	if err := xml.Unmarshal(body, &doc); err != nil {
		return "", fmt.Errorf("failed to parse transcript XML: %w", err)
	}

	segments := make([]string, 0, len(doc.Lines))
	for _, line := range doc.Lines {
		// timedtext는 HTML 엔티티를 한 번 더 이스케이프함
		text := strings.TrimSpace(strings.ReplaceAll(html.UnescapeString(line.Text), "\n", " "))
		if text != "" {
			segments = append(segments, text)
		}
	}
	return strings.Join(segments, " "), nil
}

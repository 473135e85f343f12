package database

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/supabase-community/supabase-go"
)

// TemplateRow - 템플릿 테이블 행
type TemplateRow struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Category       string `json:"category"`
	Description    string `json:"description"`
	SystemPrefix   string `json:"system_prefix"`
	QualityRules   string `json:"quality_rules"`
	ForbiddenRules string `json:"forbidden_rules"`
	IsActive       *bool  `json:"is_active"`
}

// Active - is_active 컬럼이 없으면 활성으로 간주
func (r TemplateRow) Active() bool {
	return r.IsActive == nil || *r.IsActive
}

type Client struct {
	supabase *supabase.Client
	table    string
}

// NewClient - Database 클라이언트 생성
func NewClient(url, serviceKey, table string) (*Client, error) {
	supabaseClient, err := supabase.NewClient(url, serviceKey, &supabase.ClientOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to create Supabase client: %w", err)
	}

	return &Client{
		supabase: supabaseClient,
		table:    table,
	}, nil
}

// FetchTemplates - 활성 템플릿 전체 조회
func (c *Client) FetchTemplates() ([]TemplateRow, error) {
	log.Printf("🔍 Fetching templates from Supabase: %s", c.table)

	var rows []TemplateRow

	data, _, err := c.supabase.From(c.table).
		Select("*", "exact", false).
		Execute()

	if err != nil {
		return nil, fmt.Errorf("failed to query Supabase: %w", err)
	}

	// JSON 파싱
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	active := rows[:0]
	for _, row := range rows {
		if row.ID != "" && row.Active() {
			active = append(active, row)
		}
	}

	log.Printf("✅ Templates fetched: %d active of %d", len(active), len(rows))
	return active, nil
}

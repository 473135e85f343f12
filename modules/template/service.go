package template

import (
	"log"
	"sort"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"thumbforge-server/modules/common/apperr"
	"thumbforge-server/modules/common/database"
	"thumbforge-server/modules/prompt"
)

const listCacheKey = "templates:all"

// Source - 외부 템플릿 저장소
type Source interface {
	FetchTemplates() ([]database.TemplateRow, error)
}

// Service - 내장 템플릿 + 저장소 템플릿 병합 조회
type Service struct {
	source Source
	cache  *gocache.Cache
}

// NewService - source가 nil이면 내장 템플릿만 사용
func NewService(source Source, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Service{
		source: source,
		cache:  gocache.New(ttl, 2*ttl),
	}
}

// List - 전체 템플릿 (ID 순). 저장소 실패 시 내장 템플릿으로 대체
func (s *Service) List() []*prompt.Template {
	if cached, ok := s.cache.Get(listCacheKey); ok {
		return cached.([]*prompt.Template)
	}

	byID := make(map[string]*prompt.Template)
	for _, t := range prompt.BuiltinTemplates() {
		byID[t.ID] = t
	}

	if s.source != nil {
		rows, err := s.source.FetchTemplates()
		if err != nil {
			log.Printf("⚠️ [Template] Store unavailable, using built-in templates: %v", err)
			return sortedTemplates(byID)
		}
		for _, row := range rows {
			byID[strings.ToLower(row.ID)] = fromRow(row)
		}
	}

	list := sortedTemplates(byID)
	s.cache.SetDefault(listCacheKey, list)
	return list
}

// Get - ID로 조회, 없으면 NotFound
func (s *Service) Get(id string) (*prompt.Template, error) {
	key := strings.ToLower(strings.TrimSpace(id))
	for _, t := range s.List() {
		if t.ID == key {
			return t, nil
		}
	}
	return nil, apperr.NotFound("template", "template not found: %s", id)
}

// Resolve - 빈 ID는 템플릿 없음, 모르는 ID는 경고 후 무시
func (s *Service) Resolve(id string) *prompt.Template {
	if strings.TrimSpace(id) == "" {
		return nil
	}
	t, err := s.Get(id)
	if err != nil {
		log.Printf("⚠️ [Template] Unknown template %q, using generic instruction", id)
		return nil
	}
	return t
}

func fromRow(row database.TemplateRow) *prompt.Template {
	return &prompt.Template{
		ID:             strings.ToLower(row.ID),
		Name:           row.Name,
		Category:       row.Category,
		Description:    row.Description,
		SystemPrefix:   row.SystemPrefix,
		QualityRules:   row.QualityRules,
		ForbiddenRules: row.ForbiddenRules,
	}
}

func sortedTemplates(byID map[string]*prompt.Template) []*prompt.Template {
	out := make([]*prompt.Template, 0, len(byID))
	for _, t := range byID {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

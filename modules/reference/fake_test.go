package reference

import (
	"context"
	"sync"
)

type fakeAnalyzer struct {
	mu       sync.Mutex
	response string
	err      error
	requests []AnalysisRequest
}

func (f *fakeAnalyzer) AnalyzeJSON(_ context.Context, req AnalysisRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	return f.response, f.err
}

func (f *fakeAnalyzer) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

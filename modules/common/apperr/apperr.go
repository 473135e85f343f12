package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Code - 클라이언트에 노출되는 에러 코드
type Code string

// Error codes
const (
	CodeValidation         Code = "VALIDATION_ERROR"
	CodeInvalidSource      Code = "INVALID_SOURCE"
	CodeNotFound           Code = "NOT_FOUND"
	CodeAnalysis           Code = "ANALYSIS_ERROR"
	CodeUpstreamGeneration Code = "UPSTREAM_GENERATION_ERROR"
	CodeConfiguration      Code = "CONFIGURATION_ERROR"
	CodeInternal           Code = "INTERNAL_ERROR"
)

// Reason - 업스트림 생성 실패 원인
type Reason string

const (
	ReasonQuota   Reason = "quota"
	ReasonTimeout Reason = "timeout"
	ReasonPolicy  Reason = "policy"
	ReasonUnknown Reason = "upstream"
)

// Error - 파이프라인 단계 에러
type Error struct {
	Code    Code
	Stage   string
	Reason  Reason
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Stage != "" {
		msg = e.Stage + ": " + msg
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is - 같은 코드의 에러면 일치로 판단 (errors.Is(err, apperr.ErrNotFound) 지원)
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code && (t.Reason == "" || t.Reason == e.Reason)
}

// 코드 비교용 sentinel
var (
	ErrValidation            = &Error{Code: CodeValidation}
	ErrInvalidSource         = &Error{Code: CodeInvalidSource}
	ErrNotFound              = &Error{Code: CodeNotFound}
	ErrAnalysis              = &Error{Code: CodeAnalysis}
	ErrUpstreamGeneration    = &Error{Code: CodeUpstreamGeneration}
	ErrGenerationUnavailable = &Error{Code: CodeConfiguration}
)

// Validation - 요청 검증 실패
func Validation(format string, args ...any) *Error {
	return &Error{Code: CodeValidation, Stage: "validation", Message: fmt.Sprintf(format, args...)}
}

// InvalidSource - 콘텐츠 로케이터 파싱 실패
func InvalidSource(locator string) *Error {
	return &Error{Code: CodeInvalidSource, Stage: "content", Message: fmt.Sprintf("could not parse content locator %q", locator)}
}

// NotFound - 원격 리소스 없음
func NotFound(stage, format string, args ...any) *Error {
	return &Error{Code: CodeNotFound, Stage: stage, Message: fmt.Sprintf(format, args...)}
}

// Analysis - 스타일/얼굴 분석 응답 오류
func Analysis(stage string, err error, format string, args ...any) *Error {
	return &Error{Code: CodeAnalysis, Stage: stage, Message: fmt.Sprintf(format, args...), Err: err}
}

// UpstreamGeneration - 이미지 생성 서비스 거부/실패
func UpstreamGeneration(reason Reason, err error, format string, args ...any) *Error {
	return &Error{Code: CodeUpstreamGeneration, Stage: "synthesis", Reason: reason, Message: fmt.Sprintf(format, args...), Err: err}
}

// GenerationUnavailable - 생성 백엔드 미설정
func GenerationUnavailable(format string, args ...any) *Error {
	return Configuration("synthesis", format, args...)
}

// Configuration - 외부 서비스 미설정
func Configuration(stage, format string, args ...any) *Error {
	return &Error{Code: CodeConfiguration, Stage: stage, Message: fmt.Sprintf(format, args...)}
}

// Internal - 분류되지 않은 내부 에러
func Internal(stage string, err error) *Error {
	return &Error{Code: CodeInternal, Stage: stage, Message: "internal error", Err: err}
}

// CodeOf - 에러 체인에서 코드 추출
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// ReasonOf - 업스트림 생성 실패 원인 추출
func ReasonOf(err error) Reason {
	var e *Error
	if errors.As(err, &e) {
		return e.Reason
	}
	return ""
}

// HTTPStatus - 에러 코드별 HTTP 상태
func HTTPStatus(err error) int {
	switch CodeOf(err) {
	case CodeValidation, CodeInvalidSource:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeAnalysis:
		return http.StatusBadGateway
	case CodeUpstreamGeneration:
		switch ReasonOf(err) {
		case ReasonQuota:
			return http.StatusTooManyRequests
		case ReasonTimeout:
			return http.StatusGatewayTimeout
		}
		return http.StatusBadGateway
	case CodeConfiguration:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// PublicMessage - 사용자에게 보여줄 단일 메시지
func PublicMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		if e.Code == CodeInternal {
			return "internal error"
		}
		if e.Err != nil && e.Code == CodeUpstreamGeneration {
			return fmt.Sprintf("%s: %v", e.Message, e.Err)
		}
		return e.Message
	}
	return "internal error"
}

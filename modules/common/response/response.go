package response

import (
	"encoding/json"
	"log"
	"net/http"

	"thumbforge-server/modules/common/apperr"
)

// ErrorBody - 에러 응답
type ErrorBody struct {
	ErrorMessage string `json:"error_message"`
	ErrorCode    string `json:"error_code"`
	RequestID    string `json:"request_id,omitempty"`
}

// WriteJSON - JSON 응답 작성
func WriteJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("❌ Failed to encode response: %v", err)
	}
}

// WriteError - 분류된 에러를 상태 코드와 함께 작성
func WriteError(w http.ResponseWriter, err error, requestID string) {
	WriteJSON(w, apperr.HTTPStatus(err), ErrorBody{
		ErrorMessage: apperr.PublicMessage(err),
		ErrorCode:    string(apperr.CodeOf(err)),
		RequestID:    requestID,
	})
}

// DecodeJSON - 요청 바디 파싱 (실패 시 VALIDATION_ERROR)
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any, maxBytes int64) error {
	body := http.MaxBytesReader(w, r.Body, maxBytes)
	dec := json.NewDecoder(body)
	if err := dec.Decode(dst); err != nil {
		return apperr.Validation("invalid request format: %v", err)
	}
	return nil
}

package response

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/sanchey92/trade-orders/internal/domain/model"
)

type Response struct {
	Status     int               `json:"status"`
	Error      string            `json:"error,omitempty"`
	Violations []model.Violation `json:"violations,omitempty"`
}

func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("response json encode: %v", err)
	}
}

func OK(w http.ResponseWriter, data any) {
	JSON(w, http.StatusOK, data)
}

func Error(w http.ResponseWriter, status int, msg string) {
	JSON(w, status, Response{
		Status: status,
		Error:  msg,
	})
}

func UnprocessableEntity(w http.ResponseWriter, violations []model.Violation) {
	JSON(w, http.StatusUnprocessableEntity, Response{
		Status:     http.StatusUnprocessableEntity,
		Error:      "validation failed",
		Violations: violations,
	})
}

func NotFound(w http.ResponseWriter) {
	Error(w, http.StatusNotFound, "not found")
}

func MethodNotAllowed(w http.ResponseWriter) {
	Error(w, http.StatusMethodNotAllowed, "method not allowed")
}

func ServiceUnavailable(w http.ResponseWriter) {
	Error(w, http.StatusServiceUnavailable, "storage unavailable")
}

func InternalError(w http.ResponseWriter) {
	Error(w, http.StatusInternalServerError, "internal server error")
}

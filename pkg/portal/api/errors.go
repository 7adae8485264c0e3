package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrUnsuccessful is returned when the backend answers 2xx with success=false.
var ErrUnsuccessful = errors.New("api: backend reported failure")

// StatusError is a non-2xx response.
type StatusError struct {
	Endpoint   string
	StatusCode int
	// Detail is the backend's explanation, when it sent one.
	Detail string
}

func (e *StatusError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("api: %s returned %d: %s", e.Endpoint, e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("api: %s returned %d", e.Endpoint, e.StatusCode)
}

// Kind classifies a failed call for user-facing messages.
type Kind int

const (
	// KindOther covers transport errors, unexpected statuses and success=false.
	KindOther Kind = iota
	KindBadRequest
	KindServerError
)

// Classify maps err onto a Kind. The returned detail is the backend's
// message for bad requests and empty otherwise.
func Classify(err error) (Kind, string) {
	var se *StatusError
	if !errors.As(err, &se) {
		return KindOther, ""
	}
	switch se.StatusCode {
	case http.StatusBadRequest:
		return KindBadRequest, se.Detail
	case http.StatusInternalServerError:
		return KindServerError, ""
	default:
		return KindOther, ""
	}
}

// errorBody accepts both {"detail": "..."} and validation error lists
// ({"detail": [{"msg": "..."}]}).
type errorBody struct {
	Detail  json.RawMessage `json:"detail"`
	Message string          `json:"message"`
}

func parseDetail(body []byte) string {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil {
		return ""
	}

	if len(eb.Detail) > 0 {
		var s string
		if err := json.Unmarshal(eb.Detail, &s); err == nil {
			return s
		}

		var items []struct {
			Msg string `json:"msg"`
		}
		if err := json.Unmarshal(eb.Detail, &items); err == nil {
			msgs := make([]string, 0, len(items))
			for _, it := range items {
				if it.Msg != "" {
					msgs = append(msgs, it.Msg)
				}
			}
			return strings.Join(msgs, "; ")
		}
	}

	return eb.Message
}

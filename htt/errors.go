package htt

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/ZenLiuCN/bitfields/bitfield"
)

type ResponseError struct {
	Code    int
	Message string
}

func (i ResponseError) Error() string {
	return i.Message
}

type JsonError struct {
	Timestamp int64  `json:"timestamp"`
	Code      int    `json:"code"`
	Message   string `json:"message,omitempty"`
}

// Fail abort the handler with a JSON error of code.
func Fail(code int, err error) {
	panic(ResponseError{Code: code, Message: err.Error()})
}

// Check abort with 400 on flag definition or compile errors, 500 on anything else.
func Check(err error) {
	if err == nil {
		return
	}
	var b bitfield.Error
	if errors.As(err, &b) {
		Fail(http.StatusBadRequest, err)
	}
	panic(err)
}

func writeJsonError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(JsonError{
		Timestamp: time.Now().Unix(),
		Code:      code,
		Message:   message,
	})
}

// JsonSafeHandleFunc recover and returns json error object.
//
// 400/401/404/405/500 are exposed as http status, other codes as 500.
func JsonSafeHandleFunc(h http.HandlerFunc, logger func(format string, args ...any)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			switch e := recover().(type) {
			case nil:
			case ResponseError:
				switch e.Code {
				case http.StatusNotFound, http.StatusBadRequest, http.StatusUnauthorized, http.StatusMethodNotAllowed, http.StatusInternalServerError:
					writeJsonError(w, e.Code, e.Message)
				default:
					writeJsonError(w, http.StatusInternalServerError, e.Message)
				}
				logger("handle %s: %v", r.RequestURI, e)
			default:
				writeJsonError(w, http.StatusInternalServerError, "")
				logger("handle %s: %v", r.RequestURI, e)
			}
		}()
		h(w, r)
	}
}

// WriteJson encode v with status 200.
func WriteJson(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

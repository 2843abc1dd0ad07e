package errors

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
)

// KindForStatus maps an HTTP status to its category.
func KindForStatus(status int) Kind {
	switch {
	case status == http.StatusUnauthorized:
		return KindUnauthorized
	case status == http.StatusForbidden:
		return KindForbidden
	case status == http.StatusNotFound:
		return KindNotFound
	case status == http.StatusUnprocessableEntity:
		return KindValidation
	case status == http.StatusTooManyRequests:
		return KindRateLimited
	case status == http.StatusRequestTimeout:
		return KindTimeout
	case status >= 500 && status < 600:
		return KindServer
	default:
		return KindUnexpected
	}
}

// FromResponse classifies a non-2xx response. body is the (possibly truncated)
// response payload; the backend's {"detail": ...} envelope is parsed when present.
func FromResponse(op string, status int, body []byte) *ClassifiedError {
	ce := &ClassifiedError{
		Kind:       KindForStatus(status),
		Op:         op,
		StatusCode: status,
		Body:       string(body),
		Underlying: fmt.Errorf("%s failed: HTTP %d", op, status),
	}
	ce.Detail, ce.Fields = parseDetail(body)
	return ce
}

// FromTransport classifies a failure where no response was received.
func FromTransport(op string, err error) *ClassifiedError {
	kind := KindNetwork
	if IsTimeout(err) {
		kind = KindTimeout
	}
	return &ClassifiedError{
		Kind:       kind,
		Op:         op,
		Underlying: fmt.Errorf("%s network error: %w", op, err),
	}
}

// Decode wraps a failure to decode an otherwise successful response.
func Decode(op string, status int, err error) *ClassifiedError {
	return &ClassifiedError{
		Kind:       KindUnexpected,
		Op:         op,
		StatusCode: status,
		Underlying: fmt.Errorf("%s decode response: %w", op, err),
	}
}

// IsTimeout reports whether err is a deadline or net timeout.
func IsTimeout(err error) bool {
	if stderrors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return stderrors.As(err, &ne) && ne.Timeout()
}

type detailEnvelope struct {
	Detail json.RawMessage `json:"detail"`
}

type detailItem struct {
	Loc  []any  `json:"loc"`
	Msg  string `json:"msg"`
	Type string `json:"type"`
}

func parseDetail(body []byte) (string, []FieldError) {
	if len(body) == 0 {
		return "", nil
	}
	var env detailEnvelope
	if err := json.Unmarshal(body, &env); err != nil || len(env.Detail) == 0 {
		return "", nil
	}
	var msg string
	if err := json.Unmarshal(env.Detail, &msg); err == nil {
		return msg, nil
	}
	var items []detailItem
	if err := json.Unmarshal(env.Detail, &items); err != nil {
		return strings.TrimSpace(string(env.Detail)), nil
	}
	fields := make([]FieldError, 0, len(items))
	msgs := make([]string, 0, len(items))
	for _, it := range items {
		fe := FieldError{Message: it.Msg, Type: it.Type}
		for _, l := range it.Loc {
			switch v := l.(type) {
			case string:
				fe.Location = append(fe.Location, v)
			case float64:
				fe.Location = append(fe.Location, strconv.Itoa(int(v)))
			default:
				fe.Location = append(fe.Location, fmt.Sprint(v))
			}
		}
		fields = append(fields, fe)
		msgs = append(msgs, fe.String())
	}
	return strings.Join(msgs, "; "), fields
}

// Package apperr defines the tagged error type shared by fetchers, agents,
// the orchestrator and the renderer, and its mapping to HTTP status codes.
package apperr

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

// Kind classifies a failure.
type Kind string

const (
	KindInvalidSymbol       Kind = "invalid_symbol"
	KindNotFound            Kind = "not_found"
	KindInsufficientData    Kind = "insufficient_data"
	KindUpstreamTimeout     Kind = "upstream_timeout"
	KindUpstreamUnavailable Kind = "upstream_unavailable"
	KindParse               Kind = "parse_error"
	KindLLMUnavailable      Kind = "llm_unavailable"
	KindLLMTimeout          Kind = "llm_timeout"
	KindRenderFailure       Kind = "render_failure"
	KindBadRequest          Kind = "bad_request"
	KindInternal            Kind = "internal"
)

// Error is a classified failure. Op names the operation that failed
// (e.g. "datasource.FetchHistory"); Err is the underlying cause, if any.
type Error struct {
	Kind Kind
	Op   string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	switch {
	case e.Msg != "" && e.Err != nil:
		b.WriteString(e.Msg)
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	case e.Msg != "":
		b.WriteString(e.Msg)
	case e.Err != nil:
		b.WriteString(e.Err.Error())
	default:
		b.WriteString(string(e.Kind))
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error by kind, so errors.Is(err, apperr.NotFound) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Op == "" && t.Msg == "" && t.Err == nil && t.Kind == e.Kind
}

// Sentinels for errors.Is comparisons.
var (
	InvalidSymbol       = &Error{Kind: KindInvalidSymbol}
	NotFound            = &Error{Kind: KindNotFound}
	InsufficientData    = &Error{Kind: KindInsufficientData}
	UpstreamTimeout     = &Error{Kind: KindUpstreamTimeout}
	UpstreamUnavailable = &Error{Kind: KindUpstreamUnavailable}
	ParseError          = &Error{Kind: KindParse}
	LLMUnavailable      = &Error{Kind: KindLLMUnavailable}
	LLMTimeout          = &Error{Kind: KindLLMTimeout}
	RenderFailure       = &Error{Kind: KindRenderFailure}
	BadRequest          = &Error{Kind: KindBadRequest}
)

// E builds a classified error.
func E(kind Kind, op, msg string, err error) *Error {
	return &Error{Kind: kind, Op: op, Msg: msg, Err: err}
}

// Wrap classifies err unless it already carries a kind, in which case it is returned as is.
func Wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return err
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain.
// Bare context deadline errors are reported as upstream timeouts.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindUpstreamTimeout
	}
	return KindInternal
}

// HTTPStatus maps err to the status code returned to API callers.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindInvalidSymbol, KindBadRequest:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindInsufficientData:
		return http.StatusUnprocessableEntity
	case KindUpstreamTimeout, KindLLMTimeout:
		return http.StatusGatewayTimeout
	case KindUpstreamUnavailable, KindParse:
		return http.StatusBadGateway
	case KindLLMUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Message returns a one-line description suitable for an API error payload.
func Message(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	if i := strings.IndexByte(msg, '\n'); i >= 0 {
		msg = msg[:i]
	}
	return msg
}

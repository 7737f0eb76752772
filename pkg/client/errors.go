package client

import (
	"errors"
	"fmt"
)

// Kind classifies a failed exchange.
type Kind int

const (
	// KindTransport is a network-level failure (DNS, reset, timeout).
	KindTransport Kind = iota + 1
	// KindResponseParse means the body was not a usable JSON object.
	KindResponseParse
	// KindAccessTokenExpired signals that the API rejected the access token.
	// Request recovers from it once; it carries no user-facing message.
	KindAccessTokenExpired
	// KindRequest is an API-level rejection (success == false).
	KindRequest
	// KindAuth means the token exchange itself was refused.
	KindAuth
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindResponseParse:
		return "response_parse"
	case KindAccessTokenExpired:
		return "access_token_expired"
	case KindRequest:
		return "request"
	case KindAuth:
		return "auth"
	default:
		return "unknown"
	}
}

// Sentinels for errors.Is. A *Error matches the sentinel of its Kind.
var (
	ErrTransport          = errors.New("transport error")
	ErrResponseParse      = errors.New("response parse error")
	ErrAccessTokenExpired = errors.New("access token expired")
	ErrRequest            = errors.New("request error")
	ErrAuth               = errors.New("auth error")
)

// Error is the single error type returned by the client.
type Error struct {
	Kind    Kind
	Message string
	// Cause is the underlying transport error for KindTransport.
	Cause error
}

func (e *Error) Error() string {
	switch {
	case e.Message != "" && e.Cause != nil:
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	case e.Message != "":
		return e.Message
	case e.Cause != nil:
		return e.Cause.Error()
	default:
		return e.sentinel().Error()
	}
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error { return e.Cause }

// Is reports whether target is the sentinel for e.Kind.
func (e *Error) Is(target error) bool {
	return target == e.sentinel()
}

func (e *Error) sentinel() error {
	switch e.Kind {
	case KindTransport:
		return ErrTransport
	case KindResponseParse:
		return ErrResponseParse
	case KindAccessTokenExpired:
		return ErrAccessTokenExpired
	case KindRequest:
		return ErrRequest
	case KindAuth:
		return ErrAuth
	}
	return nil
}

// KindOf returns the Kind of err, or 0 when err is not a *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

const (
	parseErrorMessage = "The response from NeverBounce was unable to be parsed as json. " +
		"Try the request again, if this error persists let us know at support@neverbounce.com." +
		"\n\n(Internal error)"

	requestErrorPrefix = "We were unable to complete your request. " +
		"The following information was supplied: "
)

func newParseError() *Error {
	return &Error{Kind: KindResponseParse, Message: parseErrorMessage}
}

func newRequestError(info string) *Error {
	return &Error{Kind: KindRequest, Message: requestErrorPrefix + info + "\n\n(Request error)"}
}

func newAuthError(description, code string) *Error {
	return &Error{
		Kind:    KindAuth,
		Message: requestErrorPrefix + description + "\n\n(Request error [" + code + "])",
	}
}

func newTransportError(cause error) *Error {
	return &Error{Kind: KindTransport, Cause: cause}
}

package client

import (
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultBaseURL is the NeverBounce API host.
const DefaultBaseURL = "https://api.neverbounce.com"

// Config is the read-only configuration supplied by the owning client.
type Config struct {
	APIKey    string
	APISecret string
	// Timeout bounds a single HTTP exchange. Zero means no timeout.
	Timeout time.Duration
	// BaseURL defaults to DefaultBaseURL.
	BaseURL   string
	UserAgent string
}

// Owner is the object that owns a Client: it supplies configuration and the
// base transport options for each call.
type Owner interface {
	Config() Config
	RequestOptions(d Descriptor) RequestOptions
}

// BasicAuth is the credential pair sent on the token exchange.
type BasicAuth struct {
	Username string
	Password string
}

// Descriptor describes where one logical request goes.
type Descriptor struct {
	Path   string
	Auth   *BasicAuth
	Header http.Header
}

// Field is a single form field.
type Field struct {
	Key   string
	Value string
}

// Payload is an ordered set of form fields. Methods never modify the receiver.
type Payload []Field

// NewPayload builds a payload from alternating key/value arguments.
// A trailing key without a value is ignored.
func NewPayload(kv ...string) Payload {
	p := make(Payload, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		p = p.With(kv[i], kv[i+1])
	}
	return p
}

// With returns a copy of p where key is set to value. An existing key keeps
// its position; a new key is appended.
func (p Payload) With(key, value string) Payload {
	out := make(Payload, len(p), len(p)+1)
	copy(out, p)
	for i := range out {
		if out[i].Key == key {
			out[i].Value = value
			return out
		}
	}
	return append(out, Field{Key: key, Value: value})
}

// Get returns the value stored for key.
func (p Payload) Get(key string) (string, bool) {
	for _, f := range p {
		if f.Key == key {
			return f.Value, true
		}
	}
	return "", false
}

// Encode renders p as application/x-www-form-urlencoded in field order.
func (p Payload) Encode() string {
	var b strings.Builder
	for i, f := range p {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(f.Key))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(f.Value))
	}
	return b.String()
}

// RequestOptions are the transport options for one HTTP exchange. Values are
// immutable: the With* methods return modified copies with their own header.
type RequestOptions struct {
	Method string
	URL    string
	Header http.Header
	Auth   *BasicAuth
}

// NewRequestOptions returns POST options targeting baseURL+path.
func NewRequestOptions(baseURL, path string) RequestOptions {
	return RequestOptions{
		Method: http.MethodPost,
		URL:    strings.TrimRight(baseURL, "/") + "/" + strings.TrimLeft(path, "/"),
		Header: http.Header{},
	}
}

// WithHeader returns a copy of o with key set to value.
func (o RequestOptions) WithHeader(key, value string) RequestOptions {
	h := o.Header.Clone()
	if h == nil {
		h = http.Header{}
	}
	h.Set(key, value)
	o.Header = h
	return o
}

// WithHeaders returns a copy of o with every value in extra set.
func (o RequestOptions) WithHeaders(extra http.Header) RequestOptions {
	for k, vs := range extra {
		for _, v := range vs {
			o = o.WithHeader(k, v)
		}
	}
	return o
}

// WithBasicAuth returns a copy of o carrying auth.
func (o RequestOptions) WithBasicAuth(auth *BasicAuth) RequestOptions {
	if auth != nil {
		a := *auth
		o.Auth = &a
	}
	return o
}

// StaticOwner is an Owner backed by a fixed Config. It targets Config.BaseURL
// and adds the descriptor's header and credentials.
type StaticOwner struct {
	Cfg Config
}

// Config implements Owner.
func (s StaticOwner) Config() Config { return s.Cfg }

// RequestOptions implements Owner.
func (s StaticOwner) RequestOptions(d Descriptor) RequestOptions {
	base := s.Cfg.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	opts := NewRequestOptions(base, d.Path).
		WithHeaders(d.Header).
		WithBasicAuth(d.Auth)
	if s.Cfg.UserAgent != "" {
		opts = opts.WithHeader("User-Agent", s.Cfg.UserAgent)
	}
	return opts
}

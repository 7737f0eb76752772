// Package client is the authenticated transport underneath the NeverBounce
// Go SDK.
//
// A Client exchanges the API key and secret for an access token
// (client-credentials grant against /v3/access_token), caches it, and sets it
// on the access_token form field of every request:
//
//	c, err := client.New(client.StaticOwner{Cfg: client.Config{
//	    APIKey:    os.Getenv("NEVERBOUNCE_API_KEY"),
//	    APISecret: os.Getenv("NEVERBOUNCE_API_SECRET"),
//	    Timeout:   30 * time.Second,
//	}})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	resp, err := c.Request(ctx, client.Descriptor{Path: "/v3/account"}, nil)
//
// # Token lifecycle
//
// The token is fetched lazily by the first Request (or AccessToken) and kept
// until the API answers {"success": false, "msg": "Authentication failed"}.
// Request then drops the token, fetches a new one and sends the same request
// exactly once more. The second outcome is returned as is.
//
// # Errors
//
// Every failure is a *Error whose Kind tells what went wrong. Use errors.Is
// with the sentinels or KindOf:
//
//	_, err := c.Request(ctx, d, p)
//	switch {
//	case errors.Is(err, client.ErrRequest):
//	    // the API refused the request; err.Error() has its message
//	case errors.Is(err, client.ErrTransport):
//	    // network failure; errors.Unwrap(err) is the original error
//	}
//
// # Owners
//
// The Owner interface supplies configuration and base request options.
// StaticOwner covers the common case; the neverbounce package provides the
// full SDK owner.
package client

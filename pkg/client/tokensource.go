package client

import (
	"context"

	"golang.org/x/oauth2"
)

// TokenSource exposes the client's token cache as an oauth2.TokenSource, so
// the same token can authorize other HTTP clients (oauth2.NewClient). The
// returned tokens carry no expiry; expiry is only detected reactively by
// Request.
func (c *Client) TokenSource(ctx context.Context) oauth2.TokenSource {
	return &tokenSource{ctx: ctx, c: c}
}

type tokenSource struct {
	ctx context.Context
	c   *Client
}

func (s *tokenSource) Token() (*oauth2.Token, error) {
	token, err := s.c.AccessToken(s.ctx)
	if err != nil {
		return nil, err
	}
	return &oauth2.Token{AccessToken: token, TokenType: "Bearer"}, nil
}

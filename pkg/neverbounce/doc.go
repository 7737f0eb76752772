// Package neverbounce is a client for the NeverBounce v3 email verification
// API.
//
// It owns a [client.Client], which handles the access token exchange, token
// caching and the single retry after an expired token, and adds typed calls
// on top of it:
//
//	nb, err := neverbounce.New(neverbounce.Config{
//	    APIKey:    os.Getenv("NEVERBOUNCE_API_KEY"),
//	    APISecret: os.Getenv("NEVERBOUNCE_API_SECRET"),
//	})
//	if err != nil { ... }
//
//	res, err := nb.Single(ctx, "alice@example.com")
//	if err != nil { ... }
//	fmt.Println(res.Result) // valid
//
// Errors are *client.Error values; match them with errors.Is against the
// client sentinels (client.ErrRequest, client.ErrAuth and so on).
package neverbounce

// Package client is a Go SDK for the portfolio API.
//
// A Client is constructed explicitly with New and owns its session, read cache
// and relay subscriber; nothing is shared between clients.
//
//	c, err := client.New(client.Config{BaseURL: "http://localhost:5000"})
//	if err != nil { ... }
//	defer c.Close()
//
//	if _, err := c.Login(ctx, "admin@example.com", "secret"); err != nil { ... }
//	skills, err := c.Skills().List(ctx, nil)
//
// Reads are cached for Config.CacheTTL (5 minutes by default) and retried with
// exponential backoff on transient failures such as 5xx. Writes are never
// retried; on success they invalidate the cache entries of their entity.
//
// A 401 on an authenticated request triggers a single refresh attempt.
// Concurrent requests share one refresh; a request that waited on another's
// refresh simply retries with the new token. If the server rejects the refresh
// token the session moves to StateExpired and the original error is returned.
//
// Relay subscribes to live project events over WebSocket. It reconnects with
// backoff, re-joins remembered rooms, and invalidates the cached project list
// whenever a project:* event arrives.
package client

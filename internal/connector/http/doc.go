// Package http provides the rate-limited HTTP transport used to talk to the
// Directory Insights event API.
//
// Structure:
//
//	client.go     - HTTP client with rate limiting, no retries
//	auth.go       - static credential strategies (API key, org header)
//	paginator.go  - header cursor pagination
package http

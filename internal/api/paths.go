// Package api provides the HTTP client for the chat completion backend.
package api

// Backend paths, relative to the configured API base.
const (
	// PathChat accepts a ChatRequest and streams the reply as plain text.
	PathChat = "/api/chat"
)

// DefaultDeveloperMessage is sent when the caller leaves the system message empty.
const DefaultDeveloperMessage = "You are a helpful assistant."

// Request headers sent with every chat request.
const (
	HeaderRequestID = "X-Request-ID"
	contentTypeJSON = "application/json"
	acceptStream    = "text/plain, */*"
)

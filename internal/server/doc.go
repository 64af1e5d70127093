// Package server implements the orchestrator HTTP API.
//
// The API has two faces. The JSON endpoints (/scan, /start, /status,
// /results, ...) serve operators and the GPU host. The terse plain-text
// endpoints (/text, /networks, /cmd/..., ...) serve the embedded
// display, which has a small screen and a smaller HTTP client, so they
// return pipe-separated lines instead of JSON.
//
// Middleware order is recovery, access logging, then API-key
// authentication with per-IP rate limiting on the protected routes.
package server

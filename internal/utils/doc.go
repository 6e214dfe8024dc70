// Package utils provides the low-level helpers shared by the endpoint
// adapters: JSON POST requests for both whole-response and Server-Sent Events
// delivery, an SSE line scanner, and small pointer/string helpers.
//
// Key entry points: [DoPostSync] for synchronous JSON round-trips,
// [DoPostStream] together with [SSEScanner] for streaming, and [StatusError]
// for non-2xx responses.
package utils

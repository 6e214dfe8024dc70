// Package openai implements the ai.Provider and ai.StreamProvider interfaces
// for OpenAI-compatible chat completions endpoints.
//
// The main entry point is [New], which reads OPENAI_API_KEY and
// OPENAI_API_BASE_URL from the environment. Use [OpenAIProvider.WithAPIKey]
// and [OpenAIProvider.WithBaseURL] to override these values programmatically.
//
// Every failure is returned as an *ai.RemoteError classified as
// ai.ErrRemoteUnavailable, ai.ErrRemoteRejected or ai.ErrStreamInterrupted.
// Error bodies are decoded from the OpenAI error envelope; cut-off JSON is
// repaired and HTML gateway pages are reduced to plain text first.
package openai

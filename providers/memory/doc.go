// Package memory defines the Provider interface for transcript storage.
// Implementations store [ai.Message] values in conversation order for a
// single conversation. Every method returns an error so that database-backed
// implementations can surface failures to the caller.
// The default implementation lives in the sibling package
// [github.com/leofalp/convo/providers/memory/inmemory].
package memory

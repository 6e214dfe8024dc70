// Package inmemory provides a concurrency-safe, slice-backed implementation
// of the [memory.Provider] interface for storing a transcript in process memory.
// It is the default store of a conversation client and does not survive restarts.
// The main entry point is [New], which returns a ready-to-use [ArrayMemory] instance.
package inmemory

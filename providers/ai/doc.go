// Package ai defines the provider-agnostic types shared by the conversation
// client and the remote endpoint adapters: [Message], [ChatRequest],
// [ChatResponse], [GenerationConfig] and the streaming pair [ChatStream] /
// [StreamEvent].
//
// [Provider] covers blocking chat completions; [StreamProvider] adds
// incremental delivery. Every remote failure is reported as a [*RemoteError]
// that matches exactly one of the taxonomy sentinels ([ErrRemoteUnavailable],
// [ErrRemoteRejected], [ErrStreamInterrupted]) through [errors.Is].
package ai

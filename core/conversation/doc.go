// Package conversation provides the stateful conversation client that sits
// between callers and a remote text-generation endpoint.
//
// A [Client] owns one transcript and one default generation [Config]. Each
// call to [Client.Send] or [Client.Stream] appends the user turn, sends the
// whole transcript to the endpoint and, on success, appends exactly one
// assistant turn. [Client.Reset] and [Client.History] manage the transcript
// without contacting the endpoint.
//
// Errors are classified by the four kinds declared in package ai:
// ai.ErrInvalidInput, ai.ErrRemoteUnavailable, ai.ErrRemoteRejected and
// ai.ErrStreamInterrupted. The client never retries on its own; retries are an
// opt-in middleware (see the middleware subpackage).
//
// A Client is not safe for concurrent exchanges. Callers that share one
// serialize access themselves.
package conversation

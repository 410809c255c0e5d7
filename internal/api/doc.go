// Package api provides an HTTP client for the QuizWhiz backend.
//
// # Overview
//
// This package is the remote-client boundary of QuizWhiz. It handles HTTP
// communication, JSON serialization, bearer-token injection and the
// classification of failures into a small taxonomy that the view layer can
// act on.
//
// # Architecture
//
//   - client.go: request execution, options, 401 handling
//   - endpoints.go: typed wrappers for each backend endpoint
//   - failure.go: Failure, FailureKind and user-facing messages
//   - types.go: data structures mirroring the backend schema
//
// # Client Usage
//
//	client, err := api.NewClient(cfg.BackendURL,
//		api.WithTokenSource(sessions),
//		api.WithTimeout(10*time.Second),
//	)
//	if err != nil {
//		return err
//	}
//	lessons, err := client.PublicLessons(ctx)
//
// # Request Handling
//
// All requests:
//   - Use context for cancellation and a per-request timeout (default 10s)
//   - Set Accept: application/json, and Content-Type when a body is sent
//   - Include User-Agent: quizwhiz/0.1
//   - Attach Authorization: Bearer <token> when marked Authenticated
//
// An authenticated call without a token fails with ErrNoSession before any
// network I/O.
//
// # Failure Taxonomy
//
// Every failed call returns a *Failure whose Kind is one of:
//
//   - KindNetwork: no response (connection refused, DNS, reset)
//   - KindTimeout: the request deadline expired
//   - KindUnauthorized: 401
//   - KindForbidden: 403
//   - KindNotFound: 404
//   - KindClient: any other 4xx; Message carries the body's "message",
//     "error" or "detail" field when present
//   - KindServer: 5xx
//   - KindMalformed: a 2xx body that is not the expected JSON shape
//
// Retryable reports whether repeating a call can help (network, timeout and
// server failures). UserMessage renders the text shown inline next to a
// retry control.
//
// # Unauthorized Handling
//
// The client never refreshes tokens on its own. When an authenticated call
// returns 401 it asks the installed UnauthorizedHandler what to do. The
// session package provides the two policies: clear the session (default) or
// refresh the access token and retry exactly once.
//
// # Thread Safety
//
// The Client is safe for concurrent use once constructed.
package api

// Package server implements the core connection and broadcast engine of
// the framechat service.
//
// The implementation is organized into specialized files for
// configuration, the hub, the accept loop, command dispatch, the
// operator console, and the optional WebSocket gateway to keep the
// codebase maintainable and testable as the project grows.
package server

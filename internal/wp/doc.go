// Package wp provides an HTTP client for the WordPress REST API.
//
// # Overview
//
// quill holds no business logic of its own. Posts, categories, and media
// all live on the WordPress site, and this package is the only place that
// speaks HTTP to it. It covers the core /wp/v2 routes plus the token
// routes added by the JWT authentication plugin.
//
// # Architecture
//
//   - client.go: Client, the API interface, request plumbing, and tracing
//   - types.go: Data structures mirroring the WordPress schema
//   - errors.go: The error taxonomy shared by every caller
//
// The wptest subpackage runs an in-process fake of the same routes for
// tests.
//
// # Authentication
//
// Calls authenticate in one of three ways:
//
//   - none: POST /jwt-auth/v1/token (credential exchange)
//   - bearer: token validation, every posts route, and media upload
//   - basic: GET /wp/v2/categories and GET /wp/v2/media/{id}
//
// Bearer calls read the token from a TokenSource at request time. When the
// source is nil or empty the call fails with ErrAuthMissing and no request
// is sent. Basic credentials are fixed at construction with WithBasicAuth.
//
// # Client Usage
//
//	client, err := wp.NewClient("http://localhost/wp/wp_plugins/wp-json", sess,
//		wp.WithBasicAuth(cfg.Username, cfg.BasicPassword()))
//	if err != nil {
//		return err
//	}
//	posts, err := client.ListPosts(ctx, wp.AllStatuses...)
//
// # Request Handling
//
// All requests:
//   - Use context for cancellation and timeout control (the client sets none)
//   - Set Accept: application/json and User-Agent: quill/0.1
//   - Run inside an OpenTelemetry client span (no-op unless a provider is set)
//   - Are attempted exactly once
//
// # Error Handling
//
//   - ErrAuthMissing: bearer call without a token
//   - ErrUnsupportedImage: upload that is not image/jpeg or image/png
//   - *NetworkError: the request never produced a response
//   - *RemoteError: non-2xx status, carrying the WordPress code and message
//
// UserMessage turns any of these into the text shown in an alert.
package wp

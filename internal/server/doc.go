// Package server exposes the poller to viewers over HTTP.
//
// # Endpoints
//
//	GET /ws        websocket; each connection gets its own poller and receives one text frame per delivered link
//	GET /healthz   liveness and connected viewer count
//	GET /metrics   Prometheus metrics
//
// The viewer's poller is cancelled when the socket closes. A fatal poller error closes the socket
// with [websocket.CloseInternalServerErr].
//
// # Router
//
// [BasicRouter] registers [http.ServeMux] patterns behind a [Middleware] stack. Middleware wraps
// in reverse order (last added runs innermost). Custom handlers implement [Handler], which adds
// the routes they serve to the stdlib interface.
//
// # OAuth Callback
//
// [OAuthHandler] completes the Spotify authorization code flow for the CLI: it serves the redirect
// path, checks the state token, exchanges the code and sends a single [OAuthResult].
package server

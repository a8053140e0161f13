// Package server runs the local HTTP server that receives the implicit-grant login callback.
//
// # Router
//
// [BasicRouter] implements [Router] on top of [http.ServeMux] method patterns. [Middleware]
// added with [BasicRouter.Use] wraps every handler registered afterwards; the first middleware
// added is the outermost. [Logging], [Recover] and [NoStore] are the stack the CLI installs.
//
// # Login callback
//
// The provider redirects to GET /callback with the access token in the URL fragment. Browsers
// never send fragments to servers, so [CallbackHandler] answers with a small page that reads
// location.hash, removes it from the address bar with history.replaceState and posts it to
// POST /callback/token. That route passes the fragment to a [Completer] exactly once and
// reports the outcome on [CallbackHandler.Result]. Later posts are rejected, which stops a
// replayed callback from starting a second session.
//
// [Start] binds the listen address before returning and serves in the background until
// [Local.Shutdown].
package server

// Package auth owns the credential lifecycle for the implicit OAuth grant.
//
// # Login
//
// [Store.BeginLogin] stores a fresh nonce in session-scoped [SessionStorage] and returns the
// authorization URL with response_type=token. The browser returns the credential in the
// URL fragment, which the local callback page posts back. [Store.CompleteLogin] parses that
// fragment once, consumes the nonce whether or not it matches, and creates the [models.Session].
//
// A mismatched or missing nonce fails with [shared.ErrCSRFMismatch] and no session is created.
//
// # Renewal Warning
//
// On success a timer is armed at expires_in minus the renewal lead. When it fires the expiring
// hook runs (the engine logs the user out), or the store clears itself when no hook is set.
//
// # Logout
//
// [Store.Clear] revokes the credential with the provider on a best-effort basis, clears the
// session and cancels the renewal timer. Revocation failures are logged, never returned.
//
// [Store] implements [oauth2.TokenSource] so API clients can authorize requests with it directly.
package auth

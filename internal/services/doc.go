// Package services talks to the YouTube Data API on behalf of the signed-in user.
//
// # Source Interface
//
// The engine depends on [Source] only, so tests can substitute an in-memory fake.
// [YouTubeService] is the production implementation, built on google.golang.org/api/youtube/v3
// with a bearer transport from golang.org/x/oauth2.
//
// # Pagination
//
// [Paginate] walks a cursor-paginated listing until the upstream reports no next page token.
// Callers only ever see the complete aggregate. A listing that never terminates within
// the page bound fails with [shared.ErrMalformedPagination] and returns nothing.
//
// # Durations
//
// [YouTubeService.Durations] looks durations up in batches of at most 50 ids. Batches run
// concurrently through an errgroup with a rate limiter in front of every call.
// [ParseISODuration] decodes the compact "PT#H#M#S" encoding the API returns.
// [CachedSource] answers repeat lookups from a [DurationCache] and only asks the upstream
// for ids it has not seen.
//
// # Error Handling
//
// API failures are classified into the shared sentinels:
//   - [shared.ErrUnauthorized] : 401, the credential is dead and the session must end
//   - [shared.ErrForbidden] : 403, the request was refused (scope or quota)
//   - [shared.ErrPlaylistNotFound] : 404 on a playlist listing
//   - [shared.ErrAPIRequest] : everything else, including transport failures
package services

// Package distance resolves drive times through a distance-matrix style HTTP
// API.
//
// A Client renders a configured URL template with the percent-encoded origin,
// destination, and API key, issues a GET, and folds the JSON reply into a
// Result. Lookup never returns an error: every failure becomes a Result whose
// Outcome says which class of failure occurred, so callers can tell "no route
// between these points" (persist it) from "the API refused us" (back off) from
// "the request never completed" (also back off).
package distance

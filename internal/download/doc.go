// Package download fetches artifacts into the application directory.
//
// [Service.Download] skips files excluded by their rules or already present with the expected SHA-1,
// retries failed fetches, falls back to mirror hosts on 404 and persists through a temp file so a
// verified file is never left half written. Metadata documents go through [Service.GetBytes] and
// [Service.GetJSON] with the same rate limit and retry budget.
package download

// Package session keeps the memoized Dataset of each dashboard session.
//
// Every session holds at most one entry, keyed by the fingerprint of the
// upload set that produced it. Uploading a different set replaces the entry;
// changing filters or views reuses it. Entries expire after an idle TTL and
// the oldest idle session is evicted when the cache is full.
package session

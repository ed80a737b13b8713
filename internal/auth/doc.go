// Package auth implements the dashboard's shared secret gate.
//
// A single configured password, given in plain text or as a bcrypt hash,
// unlocks the dashboard. A successful login stores an authenticated flag and
// a random session id in a signed cookie; the session id also keys the
// per-session dataset cache.
package auth

// Package store persists the meeting collection as a single JSON document
// with atomic replacement on save and an advisory file lock so concurrent
// runs cannot interleave writes.
package store

// Package meeting defines the canonical meeting record shared by discovery,
// the store, and the processing stages, including the merge rules applied
// when a meeting is rediscovered.
package meeting

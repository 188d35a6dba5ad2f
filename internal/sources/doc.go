// Package sources defines the discovery adapter contract shared by the
// YouTube, Granicus, and Legistar implementations.
package sources

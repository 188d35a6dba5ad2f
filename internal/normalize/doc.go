// Package normalize converts raw discovery payloads from each source into
// canonical meeting records. The functions here are pure so mapping rules,
// id schemes, and date handling can be tested without network access.
package normalize

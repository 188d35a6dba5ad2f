// Package services defines the error taxonomy and context plumbing shared by
// the external collaborator clients (downloader, transcriber, analyzer) and
// the pipeline orchestrator.
package services

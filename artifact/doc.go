// Package artifact exposes the files an agent run leaves behind.
//
// The Store interface backs the file listing and download endpoints.
// FileStore serves a directory on the local filesystem (the agent's
// generated-files directory); InMemoryStore keeps files in process and is
// useful for tests and demos.
package artifact

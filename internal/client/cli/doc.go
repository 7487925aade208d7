// Package cli provides the interactive farm advisor client.
//
// App drives the record, sync and weather services from a REPL. A
// background watcher pings the backend and flushes the sync queue whenever
// the client comes back online. Typed "voice" commands go through the same
// interpreter a speech recognizer would feed.
//
// Commands:
//   - log / soil: record field work and soil tests
//   - list / show / delete: browse the local store
//   - sync / requeue / status: drive the sync queue
//   - voice: interpret an utterance and announce the result
//   - lang / user / backup: settings and S3 snapshots
package cli

// Package backend is the reference settings backend the synchronizer talks
// to in-process.
//
// FileStore persists the launcher settings as a JSON document and notices
// edits made by other processes. RuntimeScanner discovers installed Java
// runtimes. Service puts both behind the command surface that
// channel.Backend describes: every command answers with a
// protocol.Response, and every persisted change is announced as a
// protocol.PartialUpdate.
package backend

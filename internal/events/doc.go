// Package events decouples services that request background work from the
// task machinery that runs it. A service emits a TaskRequestEvent through an
// EventEmitter; registered EventHandler implementations turn the event into
// queued tasks. Keeping the indirection here avoids an import cycle between
// the session service and the task runner.
package events

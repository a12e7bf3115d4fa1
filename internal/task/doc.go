// Package task runs card generation in the background: a bounded queue, a
// worker pool, and per-task status persisted to the tasks table. Tasks left
// pending or processing by a crash are re-queued on startup through the
// registered resolvers, so a restart never strands a generation run.
package task

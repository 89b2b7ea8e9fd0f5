// Package command turns business requests into appends on the event log and
// answers the read-side queries that rebuild state from it.
//
// Commands that depend on projected state (evidence generation, AI requests)
// read the whole log, fold it, check their precondition and append. The
// check and the append are not atomic; evidence packs carry the version and
// hash of the event they were generated from so a stale read can be spotted
// afterwards.
package command

// Package projection derives the VERYX read model by folding the event log.
//
// Nothing here is stored. Every query calls Run over the full log and gets a
// new Snapshot.
package projection

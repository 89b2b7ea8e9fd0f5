// Package harness runs YAML scenarios against a fresh in-memory event log.
//
// A scenario is a list of command steps followed by assertions over the
// resulting event trace, the projected state and the integrity verdict.
// Every run uses a deterministic clock and sequential ids, so the trace of a
// scenario is byte-for-byte reproducible and can be pinned in a golden file.
//
// Example:
//
//	name: overspend
//	description: spending past the budget clamps the balance at zero
//	steps:
//	  - command: create-portfolio
//	    as: pf
//	    args: {name: Grid, budget: 1000, score: 7}
//	  - command: approve-portfolio
//	    args: {portfolioId: $pf}
//	  - command: log-expense
//	    args: {portfolioId: $pf, amount: 1500}
//	assertions:
//	  - type: final_state
//	    entity: portfolio
//	    ref: $pf
//	    expect: {status: APPROVED, balance: 0, cpi: 0}
//
// String arguments of the form $name resolve to the id returned by the step
// bound with "as: name"; $name.hash resolves to the audit hash of a
// generated evidence pack.
package harness

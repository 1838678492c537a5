// Package textutil provides small text helpers shared by the queue store and
// the CLI.
//
// Addresses arrive from upstream producers in whatever form they were typed.
// NormalizeAddress produces the display form that is stored and sent to the
// distance API; AddressKey produces a case-folded comparison key so the
// queue can recognize the same route entered twice.
package textutil

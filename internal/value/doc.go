// Package value defines the tagged value model for the variable store.
//
// A Value is one of exactly six variants: Number, Bool, String, Array,
// Object, Null. The set is sealed; nothing outside this package can add a
// variant. Kind ordinals are part of the external boundary contract and
// must never be renumbered.
//
// String, Array and Object are counted values: constructing one draws
// units from an alloc.Ledger and Release returns them, recursively,
// exactly once. A Value owns everything reachable from it and nothing
// else; releasing it must not touch memory owned by a sibling or parent.
// Releasing the same logical value twice is out of contract.
package value

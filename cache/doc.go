// Package cache implements the segmented LRU cache the compiler uses to
// amortize schema reflection, identifier escaping, join derivation, and
// text assembly across repeated uses of the same compiled template shape
// (§4.4).
//
// A Cache is sharded into a power-of-two number of segments; each segment
// is an independent mutex-guarded access-ordered map. get/put on distinct
// segments proceed in parallel. getOrCompute may run its supplier
// concurrently for the same key under contention — exactly one computed
// value wins via insert-if-absent publication, and losers adopt it,
// trading possible redundant computation for never holding a lock during
// the (potentially expensive) compute (§5).
package cache

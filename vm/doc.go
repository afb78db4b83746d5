// Package vm implements the garnet object runtime.
//
// This package contains:
//   - Tagged value representation (immediate integers and heap references)
//   - Heap object layout, allocation registry and tracing
//   - Class hierarchy and primitive method dispatch
//   - The hashing and equality service (hash, eql?, ==)
//   - The insertion-ordered hash engine and the Hash class built on it
//   - Language error values
package vm

// Package gen renders Go bindings from a library schema.
//
// Generation is a pure transform: Generate turns a validated schema
// into source artifacts plus diagnostics and touches no files. Write
// applies artifacts to a directory with content-hash comparison and
// atomic renames, so an unchanged schema produces zero writes and an
// interrupted run never leaves partial files. Diff reports drift
// between rendered artifacts and what is on disk.
//
// Every binding carries a trailing options parameter regardless of the
// foreign signature, so runtime controls are reachable uniformly.
package gen

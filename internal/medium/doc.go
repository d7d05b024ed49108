// Package medium defines the key/value storage contract the log store is
// written against, plus an in-memory implementation.
//
// A Medium offers only key-granular atomicity. Media that can commit several
// mutations at once additionally implement Transactional; callers probe for it
// with a type assertion and fall back to ordered single-key writes otherwise.
package medium

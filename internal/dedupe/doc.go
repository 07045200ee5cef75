// Package dedupe scores place records against each other and groups likely
// duplicates.
//
// Pairwise detection (DetectDuplicates) compares one target against a set of
// candidates using name similarity, great-circle distance, and categorical
// matches on kind, city, and country. Batch detection runs pairwise
// detection for every place in a set, and FindDuplicateClusters turns the
// batch output into connected components of mutually confident matches.
//
// The package holds no state and performs no I/O. Persistence, caching, and
// dismissed-pair filtering live in the review package.
package dedupe

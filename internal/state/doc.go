// Package state provides alert store implementations. The JSONL store in
// this package is the default; sqlite and firestore live in subpackages.
package state

import "github.com/anshukrra07/CampusCare-sub001/internal/alert"

// Compile-time interface compliance check.
var _ alert.Store = (*AlertStore)(nil)

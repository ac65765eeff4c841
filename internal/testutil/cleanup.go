// Package testutil builds savegame fixtures for tests and examples.
//
// It encodes the wire format independently of the savegame package, so
// fixtures exercise the decoder rather than mirror it.
package testutil

import "os"

// RemoveAll removes a fixture directory and everything under it, ignoring
// errors. Intended for defer in examples:
//
//	defer testutil.RemoveAll(tmpDir)
func RemoveAll(path string) { _ = os.RemoveAll(path) }

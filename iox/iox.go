// Package iox provides small I/O cleanup helpers.
package iox

import "io"

// DiscardClose closes c and discards the error.
// Use in defer statements where a close error is unactionable, such as
// HTTP response bodies:
//
//	defer iox.DiscardClose(resp.Body)
func DiscardClose(c io.Closer) { _ = c.Close() }

// CloseFunc returns a cleanup function that closes c, for t.Cleanup
// registration:
//
//	t.Cleanup(iox.CloseFunc(client))
func CloseFunc(c io.Closer) func() {
	return func() { _ = c.Close() }
}

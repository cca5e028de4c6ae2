// Package reporter is the host-facing surface of the subsystem. It owns the
// run lifecycle: a health probe gates the whole run, events stream over the
// connection manager while the run executes, and Finish scans the artifact
// directory, uploads everything, and closes the session.
//
// Nothing here can fail the host run. A failed health probe disables the
// reporter for the rest of the run — every Emit becomes a no-op and Finish
// returns an empty summary. Upload failures surface only in the returned
// Summary.
package reporter

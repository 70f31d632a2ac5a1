// Package kurpod implements an encrypted single-file blob container with
// plausible deniability between two independently keyed volumes.
//
// One on-disk container holds a Standard volume and a Hidden volume. A
// passphrase unlocks at most one of them; without the hidden passphrase an
// observer of the container file cannot tell whether a hidden volume exists
// at all. See the Controller type for the operations exposed to callers
// (an HTTP server, a CLI, or any other caller is expected to sit on top of
// this package).
package kurpod

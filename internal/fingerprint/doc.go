// Package fingerprint derives stable identities and metadata from raw
// error messages.
//
// Normalization strips instance-specific noise (paths, line numbers,
// addresses, ids, timestamps, long literals) so that two sightings of
// the same underlying failure collapse to one canonical string:
//
//	fingerprint.Normalize("ENOENT: no such file '/tmp/build-8814/out.js'")
//	// "enoent: no such file '<path>'"
//
// The fingerprint is a SHA-256 digest over category + ":" + normalized
// message and is the sole deduplication key. Normalization is
// deterministic and idempotent; re-normalizing output is a no-op.
//
// The package also pattern-matches messages to a category (Classify), a
// severity suggestion (SuggestSeverity), and a derived tag set
// (DeriveTags). All three are best-effort vocabulary matches intended
// for reports that arrive without explicit metadata.
package fingerprint

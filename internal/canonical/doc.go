// Package canonical encodes run configuration as canonical JSON and computes
// content digests for artifact payloads.
//
// Canonical JSON follows RFC 8785:
//   - Object keys sorted by UTF-16 code units
//   - No HTML escaping
//   - Strings NFC normalized
//   - Numbers printed in their shortest round-trip form
//
// Two configurations that differ only in key order or Unicode normalization
// encode to identical bytes, so stored run configs can be compared directly.
package canonical

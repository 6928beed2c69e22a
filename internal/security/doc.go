// Package security summarizes the effective hardening posture of an engine
// configuration.
//
// [BuildReport] is pure: it takes a flattened [ReportInput] and derives the
// active protections plus human-readable warnings for weak settings.
//
// # What this package must NOT do
//
//   - Import the root storeAuth package.
//   - Fail or mutate anything; weak settings become warnings, not errors.
package security

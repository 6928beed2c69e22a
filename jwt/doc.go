// Package jwt issues and verifies the two token kinds used by storeAuth:
// short-lived access tokens carrying a role snapshot, and long-lived refresh
// tokens carrying only the subject.
//
// # Key separation
//
// Access and refresh tokens are signed with distinct keys and carry a typ
// claim. A token of one kind never verifies as the other.
//
// # What this package must NOT do
//
//   - Perform I/O. Keys are parsed once by [NewManager].
//   - Distinguish failure causes to callers beyond wrapping [ErrInvalidToken].
package jwt

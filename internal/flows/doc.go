// Package flows contains pure-function orchestrators for every Engine operation.
//
// Each flow function (RunRegister, RunLogin, RunRefresh, RunValidate,
// RunLogout) accepts a typed dependency struct of function fields and returns
// results without side-effects beyond those dependencies. Unit tests drive
// them with in-line fakes.
//
// # Architecture boundaries
//
// Flow functions coordinate calls to the user directory, password hasher,
// token codec, session store, lockout tracker, audit dispatcher and metrics.
// They do NOT own any of these resources; ownership stays with the Engine.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import storeAuth (to avoid import cycles).
//   - Perform I/O directly. All I/O is mediated through dependency functions.
package flows

// Package httpapi mounts the storeAuth engine on a chi router.
//
// # Routes
//
//	POST /api/v1/auth/register   rate gate
//	POST /api/v1/auth/login      rate and lockout gates
//	POST /api/v1/auth/refresh    rate gate
//	POST /api/v1/auth/logout     rate gate
//	GET  /api/v1/auth/me         bearer guard
//	POST /api/v1/auth/logout-all rate gate, bearer guard
//	GET  /api/v1/admin/users/{id}/sessions    bearer guard, admin role
//	POST /api/v1/admin/users/{id}/logout-all  bearer guard, admin role
//	GET  /healthz
//	GET  /metrics                when a metrics handler is supplied
//
// Every route passes through request ids, panic recovery, the access log,
// security headers, CORS, client identification, the request timeout and
// the body limit, in that order.
//
// # What this package must NOT do
//
//   - Implement auth decisions. Status codes come from middleware.StatusFor.
//   - Log tokens, cookies or passwords.
package httpapi

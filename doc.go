// Package authentic implements account-based authentication for services
// that manage their own users: signup with emailed confirmation links,
// login issuing RS256-signed bearer tokens, and a two-step password
// change flow driven by one-time tokens.
//
// The core entry point is Authenticator, usually built through New:
//
//	store := authentic.NewMemoryStore()
//	auth, err := authentic.New(cfg, store)
//
// Persistence is pluggable through the UserStore interface; the package
// ships an in-memory store and a bun-backed SQL store. Outbound mail is
// pluggable through Mailer, defaulting to a logging mailer suitable for
// development.
//
// HTTP exposure is optional. RegisterAuthRoutes mounts JSON endpoints on
// any go-router backed server, and middleware/jwtware protects routes
// with the bearer tokens this package mints.
package authentic

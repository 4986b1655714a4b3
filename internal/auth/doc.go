// Package auth provides bearer-token authentication for the MCP endpoint.
//
// # JWT Tokens
//
// MCP clients authenticate with HS256 JWTs signed with auth.jwt_secret
// (AUTH_JWT_SECRET, at least 32 bytes). Claims:
//
//   - sub: principal id, required, recorded in the audit trail
//   - exp: optional expiry
//   - scope: optional space separated scopes
//
// Tokens are minted with the CLI:
//
//	santecall-gateway token --principal assistant-1 --ttl 720h
//
// # HTTP Middleware
//
// BearerMiddleware guards the JSON-RPC routes only. Requests without a valid
// "Authorization: Bearer <token>" header get 401 with a WWW-Authenticate
// header; accepted requests carry an AuthContext:
//
//	authCtx := auth.FromContext(r.Context())
//	principal := auth.PrincipalFromContext(ctx) // "" when anonymous
//
// When no secret is configured the middleware is not installed and every
// caller is anonymous.
package auth

package gateway

import "crypto/subtle"

// AccessDecision is the per-request access policy result. Derived once before
// any upstream call; never persisted.
type AccessDecision struct {
	// Valid is false only when a configured secret is contradicted by a
	// non-matching credential.
	Valid bool
	// Exempt is true when the caller authenticated with the shared secret and
	// should not be charged against a usage quota. The quota counter itself
	// lives outside the gateway.
	Exempt bool
}

// EvaluateAccess applies the shared-secret policy:
//
//	no secret configured            -> (valid, not exempt)  open deployment
//	credential matches the secret   -> (valid, exempt)      trusted caller
//	no credential supplied          -> (valid, not exempt)  anonymous, quota-limited
//	credential does not match       -> (invalid, not exempt)
//
// Pure function, no side effects. Must run before the upstream call so
// unauthorized callers never spend upstream quota.
func EvaluateAccess(secret, credential string) AccessDecision {
	if secret == "" {
		return AccessDecision{Valid: true}
	}
	if credential == "" {
		return AccessDecision{Valid: true}
	}
	if subtle.ConstantTimeCompare([]byte(secret), []byte(credential)) == 1 {
		return AccessDecision{Valid: true, Exempt: true}
	}
	return AccessDecision{}
}

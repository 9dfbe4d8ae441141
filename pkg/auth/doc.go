// Package auth verifies bearer credentials issued by the external auth
// subsystem. Access tokens are HS256 JWTs whose subject is the user UUID;
// API keys are resolved through an optional KeyResolver.
package auth

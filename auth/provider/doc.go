// Package provider turns the credential a client posts into verified,
// provider-neutral claims.
package provider

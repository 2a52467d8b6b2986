// Package google verifies Google ID tokens.
//
// A token is accepted only when its RS256 signature matches a key from the
// published key set and its exp, nbf, aud and iss claims are acceptable:
//
//	v := google.NewVerifier(google.Config{ClientID: id}, keys)
//	claims, err := v.Verify(ctx, credential)
//
// Every rejection wraps ErrVerification. A failure to obtain the key set
// wraps ErrKeyFetch instead: it says nothing about the token.
package google

// Package lichess verifies Lichess sign-ins.
//
// Lichess issues no ID token. The browser completes the PKCE authorization
// flow and posts the code and its verifier; Client.Verify exchanges them for
// an access token (cached per verifier until it expires) and reads the
// account and email endpoints with it.
package lichess

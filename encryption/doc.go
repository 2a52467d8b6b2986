// Package encryption seals secrets that are stored at rest, such as cached
// Lichess access tokens, with AES-256-GCM or ChaCha20-Poly1305.
//
//	enc, err := encryption.New(encryption.Config{Key: os.Getenv("TOKENS_ENCRYPTION_KEY")})
//	sealed, err := enc.Encrypt(accessToken)
//	accessToken, err = enc.Decrypt(sealed)
package encryption

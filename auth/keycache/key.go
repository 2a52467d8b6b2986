package keycache

import (
	"crypto/rsa"
	"encoding/base64"
	"fmt"
	"math/big"
)

// Key is one entry of a provider's published JSON Web Key Set.
type Key struct {
	Kid string `json:"kid"`
	Kty string `json:"kty"`
	Alg string `json:"alg"`
	Use string `json:"use"`
	N   string `json:"n"`
	E   string `json:"e"`
}

// keySet is the wire document served at the JWKS endpoint.
type keySet struct {
	Keys []Key `json:"keys"`
}

// RSAPublicKey decodes the base64url modulus and exponent into an RSA key.
func (k *Key) RSAPublicKey() (*rsa.PublicKey, error) {
	if k.Kty != "RSA" {
		return nil, fmt.Errorf("keycache: key %q has type %q, want RSA", k.Kid, k.Kty)
	}
	nBytes, err := base64.RawURLEncoding.DecodeString(k.N)
	if err != nil {
		return nil, fmt.Errorf("keycache: decode modulus of %q: %w", k.Kid, err)
	}
	eBytes, err := base64.RawURLEncoding.DecodeString(k.E)
	if err != nil {
		return nil, fmt.Errorf("keycache: decode exponent of %q: %w", k.Kid, err)
	}
	e := new(big.Int).SetBytes(eBytes)
	if len(nBytes) == 0 || !e.IsInt64() || e.Int64() < 2 || e.Int64() > 1<<31-1 {
		return nil, fmt.Errorf("keycache: key %q has an invalid modulus or exponent", k.Kid)
	}
	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(nBytes),
		E: int(e.Int64()),
	}, nil
}

// signingKeys keeps the entries usable for signature verification, indexed by kid.
func (s keySet) signingKeys() map[string]*Key {
	out := make(map[string]*Key, len(s.Keys))
	for i := range s.Keys {
		k := s.Keys[i]
		if k.Kid == "" || (k.Use != "" && k.Use != "sig") {
			continue
		}
		out[k.Kid] = &k
	}
	return out
}

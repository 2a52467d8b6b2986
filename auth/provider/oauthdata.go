package provider

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Provider names an identity provider.
type Provider string

const (
	Google  Provider = "google"
	Lichess Provider = "lichess"
)

// OAuthData is the credential a client presents to sign in. It is either
// GoogleData or LichessData.
type OAuthData interface {
	Provider() Provider
	validate() error
}

// GoogleData carries a Google ID token.
type GoogleData struct {
	Credentials string `json:"credentials"`
}

// Provider implements OAuthData.
func (GoogleData) Provider() Provider { return Google }

func (d GoogleData) validate() error {
	if strings.TrimSpace(d.Credentials) == "" {
		return fmt.Errorf("%w: google credentials are required", ErrInvalidData)
	}
	return nil
}

// LichessData carries a Lichess authorization code and its PKCE verifier.
type LichessData struct {
	Code         string `json:"code"`
	CodeVerifier string `json:"codeVerifier"`
}

// Provider implements OAuthData.
func (LichessData) Provider() Provider { return Lichess }

func (d LichessData) validate() error {
	if d.Code == "" || d.CodeVerifier == "" {
		return fmt.Errorf("%w: lichess code and codeVerifier are required", ErrInvalidData)
	}
	return nil
}

// Envelope is the JSON form of OAuthData, discriminated by "type":
//
//	{"type":"google","credentials":"eyJ..."}
//	{"type":"lichess","code":"...","codeVerifier":"..."}
type Envelope struct {
	Data OAuthData
}

// UnmarshalJSON decodes the variant named by "type".
func (e *Envelope) UnmarshalJSON(b []byte) error {
	var head struct {
		Type Provider `json:"type"`
	}
	if err := json.Unmarshal(b, &head); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidData, err)
	}

	var data OAuthData
	switch head.Type {
	case Google:
		var g GoogleData
		if err := json.Unmarshal(b, &g); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidData, err)
		}
		data = g
	case Lichess:
		var l LichessData
		if err := json.Unmarshal(b, &l); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidData, err)
		}
		data = l
	default:
		return fmt.Errorf("%w: unknown provider type %q", ErrInvalidData, head.Type)
	}

	if err := data.validate(); err != nil {
		return err
	}
	e.Data = data
	return nil
}

// MarshalJSON encodes the variant with its "type" tag.
func (e Envelope) MarshalJSON() ([]byte, error) {
	switch d := e.Data.(type) {
	case GoogleData:
		return json.Marshal(struct {
			Type Provider `json:"type"`
			GoogleData
		}{Google, d})
	case LichessData:
		return json.Marshal(struct {
			Type Provider `json:"type"`
			LichessData
		}{Lichess, d})
	default:
		return nil, fmt.Errorf("%w: no oauth data", ErrInvalidData)
	}
}

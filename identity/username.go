package identity

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/kbukum/pvpauth/auth/provider"
)

const (
	minUsernameLen   = 3
	maxUsernameLen   = 20
	fallbackUsername = "player"
	maxSuffix        = 9999
)

// SuggestUsername derives a free user_name from claims: the display name,
// then the provider username, then the email local part, slugged to
// lowercase [a-z0-9_]. A numeric suffix is appended while the name is taken.
func (l *Linker) SuggestUsername(ctx context.Context, claims *provider.VerifiedClaims) (string, error) {
	base := usernameBase(claims)

	// one query for every name that could collide with base or base+suffix
	prefix := truncate(base, maxUsernameLen-len(strconv.Itoa(maxSuffix)))
	var taken []string
	err := l.db.WithContext(ctx).
		Model(&User{}).
		Where(`user_name LIKE ? ESCAPE '\'`, escapeLike(prefix)+"%").
		Pluck("user_name", &taken).Error
	if err != nil {
		return "", fmt.Errorf("suggest username: %w", err)
	}
	used := make(map[string]struct{}, len(taken))
	for _, name := range taken {
		used[name] = struct{}{}
	}

	if _, ok := used[base]; !ok {
		return base, nil
	}
	for i := 1; i <= maxSuffix; i++ {
		suffix := strconv.Itoa(i)
		candidate := truncate(base, maxUsernameLen-len(suffix)) + suffix
		if _, ok := used[candidate]; !ok {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("suggest username: no free name for %q", base)
}

func usernameBase(claims *provider.VerifiedClaims) string {
	local, _, _ := strings.Cut(claims.Email, "@")
	for _, raw := range []string{claims.DisplayName, claims.ProviderUsername, local} {
		if s := slug(raw); len(s) >= minUsernameLen {
			return s
		}
	}
	return fallbackUsername
}

// slug lowercases s, strips accents, turns separators into underscores and
// drops everything else outside [a-z0-9_].
func slug(s string) string {
	var b strings.Builder
	lastUnderscore := true
	for _, r := range norm.NFD.String(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastUnderscore = false
		case r >= 'A' && r <= 'Z':
			b.WriteRune(unicode.ToLower(r))
			lastUnderscore = false
		case r == '_' || r == ' ' || r == '-' || r == '.':
			if !lastUnderscore {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
	}
	return truncate(strings.Trim(b.String(), "_"), maxUsernameLen)
}

// truncate cuts an ASCII string to n bytes without leaving a trailing underscore.
func truncate(s string, n int) string {
	if len(s) > n {
		s = strings.TrimRight(s[:n], "_")
	}
	return s
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

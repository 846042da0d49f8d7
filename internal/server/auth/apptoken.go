package auth

import "github.com/scsp-app/scsp-server/internal/cryptox"

// AppTokenSet is a read-only allow-list of client application tokens.
type AppTokenSet struct {
	tokens []string
}

func NewAppTokenSet(tokens []string) *AppTokenSet {
	set := &AppTokenSet{}
	for _, t := range tokens {
		if t != "" {
			set.tokens = append(set.tokens, t)
		}
	}
	return set
}

// Valid reports whether token is on the list. Every entry is compared in
// constant time.
func (s *AppTokenSet) Valid(token string) bool {
	if token == "" {
		return false
	}
	ok := false
	for _, t := range s.tokens {
		if cryptox.ConstantTimeEquals(t, token) {
			ok = true
		}
	}
	return ok
}

func (s *AppTokenSet) Len() int { return len(s.tokens) }

package world

// Token is one of the discoverable puzzle options.
type Token string

// The token universe.
const (
	TokenA Token = "A"
	TokenB Token = "B"
	TokenC Token = "C"
	TokenD Token = "D"
	TokenE Token = "E"
)

// MaxTokens is how many tokens a puzzle needs.
const MaxTokens = 3

// Universe returns every valid token.
func Universe() []Token {
	return []Token{TokenA, TokenB, TokenC, TokenD, TokenE}
}

// IsValid reports whether t belongs to the universe.
func (t Token) IsValid() bool {
	switch t {
	case TokenA, TokenB, TokenC, TokenD, TokenE:
		return true
	default:
		return false
	}
}

// String returns the token name.
func (t Token) String() string {
	return string(t)
}

// TokenSet holds up to MaxTokens distinct tokens in discovery order.
type TokenSet struct {
	tokens []Token
}

// NewTokenSet creates an empty set.
func NewTokenSet() *TokenSet {
	return &TokenSet{tokens: make([]Token, 0, MaxTokens)}
}

// Add records a discovery. Duplicates, invalid tokens and additions to a
// full set are no-ops and return false.
func (s *TokenSet) Add(t Token) bool {
	if !t.IsValid() || s.Full() || s.Contains(t) {
		return false
	}
	s.tokens = append(s.tokens, t)
	return true
}

// Contains reports whether t has been discovered.
func (s *TokenSet) Contains(t Token) bool {
	for _, have := range s.tokens {
		if have == t {
			return true
		}
	}
	return false
}

// Len returns the number of discovered tokens.
func (s *TokenSet) Len() int {
	return len(s.tokens)
}

// Full reports whether MaxTokens have been discovered.
func (s *TokenSet) Full() bool {
	return len(s.tokens) >= MaxTokens
}

// Tokens returns the discovered tokens in discovery order.
func (s *TokenSet) Tokens() []Token {
	out := make([]Token, len(s.tokens))
	copy(out, s.tokens)
	return out
}

// Clear forgets every discovery.
func (s *TokenSet) Clear() {
	s.tokens = s.tokens[:0]
}

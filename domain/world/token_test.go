package world

import "testing"

func TestTokenSet_AddIsIdempotent(t *testing.T) {
	t.Parallel()

	s := NewTokenSet()
	if !s.Add(TokenB) {
		t.Fatal("Add(B) on empty set = false, want true")
	}
	if s.Add(TokenB) {
		t.Error("Add(B) twice = true, want false")
	}
	if s.Len() != 1 {
		t.Errorf("Len() = %d, want 1", s.Len())
	}
}

func TestTokenSet_NeverExceedsMax(t *testing.T) {
	t.Parallel()

	s := NewTokenSet()
	for _, tok := range []Token{TokenB, TokenD, TokenA} {
		s.Add(tok)
	}
	if !s.Full() {
		t.Fatal("Full() = false after three distinct tokens")
	}

	before := s.Tokens()
	if s.Add(TokenE) {
		t.Error("Add() on full set = true, want false")
	}
	after := s.Tokens()
	if len(after) != MaxTokens {
		t.Fatalf("Len() = %d, want %d", len(after), MaxTokens)
	}
	for i := range before {
		if before[i] != after[i] {
			t.Errorf("Tokens()[%d] = %s, want %s", i, after[i], before[i])
		}
	}
}

func TestTokenSet_PreservesDiscoveryOrder(t *testing.T) {
	t.Parallel()

	s := NewTokenSet()
	for _, tok := range []Token{TokenB, TokenB, TokenD, TokenA} {
		s.Add(tok)
	}

	want := []Token{TokenB, TokenD, TokenA}
	got := s.Tokens()
	if len(got) != len(want) {
		t.Fatalf("Tokens() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Tokens()[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestTokenSet_RejectsUnknownTokens(t *testing.T) {
	t.Parallel()

	s := NewTokenSet()
	if s.Add(Token("Z")) {
		t.Error("Add(Z) = true, want false")
	}
	if s.Len() != 0 {
		t.Errorf("Len() = %d, want 0", s.Len())
	}
}

func TestTokenSet_Clear(t *testing.T) {
	t.Parallel()

	s := NewTokenSet()
	s.Add(TokenC)
	s.Add(TokenE)
	s.Clear()

	if s.Len() != 0 {
		t.Errorf("Len() after Clear = %d, want 0", s.Len())
	}
	if !s.Add(TokenC) {
		t.Error("Add(C) after Clear = false, want true")
	}
}

func TestTokenSet_TokensReturnsCopy(t *testing.T) {
	t.Parallel()

	s := NewTokenSet()
	s.Add(TokenA)
	got := s.Tokens()
	got[0] = TokenE

	if !s.Contains(TokenA) {
		t.Error("mutating Tokens() result changed the set")
	}
}

package oracle

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestDisabledClientFallsBackToRandom(t *testing.T) {
	c := NewClient("", "", "", 1)
	if c.Enabled() {
		t.Fatal("expected a client with no endpoint/key to be disabled")
	}

	winner, loser := c.Adjudicate(context.Background(), "Gorp", "Fizzwick")
	if winner != "Gorp" && winner != "Fizzwick" {
		t.Fatalf("winner must be one of the candidates, got %q", winner)
	}
	if winner == loser {
		t.Fatal("winner and loser must differ")
	}
}

func TestDisabledClientBypassesModeration(t *testing.T) {
	c := NewClient("", "", "", 1)
	if !c.CheckAppropriate(context.Background(), "anything at all") {
		t.Error("a disabled oracle must bypass moderation, not reject")
	}
}

func TestAdjudicateAcceptsExactMatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(generateResponse{Text: `"Gorp"`})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, srv.URL, "test-key", 5)
	winner, loser := c.Adjudicate(context.Background(), "Gorp", "Fizzwick")
	if winner != "Gorp" || loser != "Fizzwick" {
		t.Errorf("expected Gorp to win with quotes stripped, got winner=%q loser=%q", winner, loser)
	}
}

func TestAdjudicateFallsBackOnMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(generateResponse{Text: "Someone Else Entirely"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, srv.URL, "test-key", 5)
	winner, loser := c.Adjudicate(context.Background(), "Gorp", "Fizzwick")
	if winner != "Gorp" && winner != "Fizzwick" {
		t.Fatalf("expected fallback to a candidate name, got %q", winner)
	}
	if winner == loser {
		t.Fatal("winner and loser must differ")
	}
}

func TestAdjudicateFallsBackOnServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, srv.URL, "test-key", 5)
	winner, loser := c.Adjudicate(context.Background(), "Gorp", "Fizzwick")
	if winner == loser {
		t.Fatal("winner and loser must differ even on fallback")
	}
}

func TestCheckAppropriateIsConservativeOnFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, srv.URL, "test-key", 5)
	if c.CheckAppropriate(context.Background(), "Gorp") {
		t.Error("an oracle error should be treated as inappropriate, not permitted")
	}
}

func TestCheckAppropriateRejectsNonExactVerdict(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(generateResponse{Text: "probably fine i guess"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, srv.URL, "test-key", 5)
	if c.CheckAppropriate(context.Background(), "Gorp") {
		t.Error("a non-exact verdict should be treated conservatively as inappropriate")
	}
}

func TestStripPairedQuotes(t *testing.T) {
	cases := map[string]string{
		`"Gorp"`:  "Gorp",
		`'Gorp'`:  "Gorp",
		`Gorp`:    "Gorp",
		`"Gorp'`:  `"Gorp'`,
		`"`:       `"`,
		``:        ``,
	}
	for in, want := range cases {
		if got := stripPairedQuotes(in); got != want {
			t.Errorf("stripPairedQuotes(%q) = %q, want %q", in, got, want)
		}
	}
}

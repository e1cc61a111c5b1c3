package memstore

import "testing"

func TestParseFactsJSONArray(t *testing.T) {
	facts, err := parseFacts(`["Jack lives in London", "Jack prefers tea"]`)
	if err != nil {
		t.Fatalf("parseFacts failed: %v", err)
	}
	if len(facts) != 2 || facts[0] != "Jack lives in London" {
		t.Fatalf("unexpected facts: %v", facts)
	}
}

func TestParseFactsCodeFence(t *testing.T) {
	raw := "```json\n[\"one fact\"]\n```"
	facts, err := parseFacts(raw)
	if err != nil {
		t.Fatalf("parseFacts failed: %v", err)
	}
	if len(facts) != 1 || facts[0] != "one fact" {
		t.Fatalf("unexpected facts: %v", facts)
	}
}

func TestParseFactsBulletedFallback(t *testing.T) {
	raw := "- first fact\n* second fact\n\n• third fact"
	facts, err := parseFacts(raw)
	if err != nil {
		t.Fatalf("parseFacts failed: %v", err)
	}
	if len(facts) != 3 || facts[2] != "third fact" {
		t.Fatalf("unexpected facts: %v", facts)
	}
}

func TestParseFactsEmptyArray(t *testing.T) {
	facts, err := parseFacts(`[]`)
	if err != nil {
		t.Fatalf("parseFacts failed: %v", err)
	}
	if len(facts) != 0 {
		t.Fatalf("expected no facts, got %v", facts)
	}
}

func TestParseFactsBlankResponse(t *testing.T) {
	if _, err := parseFacts("   \n  "); err == nil {
		t.Fatal("expected error for blank response")
	}
}

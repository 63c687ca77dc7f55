package feed

import (
	"testing"
)

func TestFingerprint_Deterministic(t *testing.T) {
	a := Fingerprint("Bitcoin Hits New High", "https://example.com/btc-high")
	b := Fingerprint("Bitcoin Hits New High", "https://example.com/btc-high")

	if a != b {
		t.Errorf("Fingerprint not deterministic: %s != %s", a, b)
	}
	if len(a) != 64 {
		t.Errorf("Expected 64 hex chars, got %d", len(a))
	}
}

func TestFingerprint_DistinctArticles(t *testing.T) {
	a := Fingerprint("Bitcoin Hits New High", "https://example.com/btc-high")
	b := Fingerprint("Ethereum Upgrade Complete", "https://example.com/eth-upgrade")

	if a == b {
		t.Error("Different articles produced identical fingerprints")
	}
}

func TestNormalizeTitle(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "lowercases and collapses whitespace",
			input:    "Bitcoin   Hits\tNew High",
			expected: "bitcoin hits new high",
		},
		{
			name:     "strips breaking prefix",
			input:    "BREAKING: Bitcoin Hits New High",
			expected: "bitcoin hits new high",
		},
		{
			name:     "strips update prefix",
			input:    "Update: SEC Approves ETF",
			expected: "sec approves etf",
		},
		{
			name:     "leaves plain title alone",
			input:    "sec approves etf",
			expected: "sec approves etf",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeTitle(tt.input); got != tt.expected {
				t.Errorf("NormalizeTitle(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestFingerprint_PrefixInsensitive(t *testing.T) {
	a := Fingerprint("Breaking: Bitcoin Hits New High", "https://example.com/btc")
	b := Fingerprint("Bitcoin Hits New High", "https://example.com/btc")

	if a != b {
		t.Error("Headline prefix changed the fingerprint")
	}
}

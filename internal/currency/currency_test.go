package currency

import "testing"

func TestAllCodes_OrderAndSize(t *testing.T) {
	codes := AllCodes()

	if len(codes) != 159 {
		t.Fatalf("expected 159 fiat codes, got %d", len(codes))
	}

	if codes[0] != "AED" {
		t.Errorf("expected first code AED, got %s", codes[0])
	}
	if codes[len(codes)-1] != "ZWL" {
		t.Errorf("expected last code ZWL, got %s", codes[len(codes)-1])
	}

	// Declaration order is part of the contract; calling twice must give
	// the same sequence.
	again := AllCodes()
	for i := range codes {
		if codes[i] != again[i] {
			t.Fatalf("order not stable at index %d: %s vs %s", i, codes[i], again[i])
		}
	}
}

func TestAllCodes_ReturnsCopy(t *testing.T) {
	codes := AllCodes()
	codes[0] = "XXX"

	if AllCodes()[0] != "AED" {
		t.Error("mutating the returned slice must not affect the catalog")
	}
}

func TestCryptoCodes(t *testing.T) {
	want := []Code{"BTC", "ETH", "BNB", "DOT", "AVAX", "LTC"}
	got := CryptoCodes()

	if len(got) != len(want) {
		t.Fatalf("expected %d crypto codes, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("index %d: expected %s, got %s", i, want[i], got[i])
		}
	}
}

func TestCryptoListParam(t *testing.T) {
	if got := CryptoListParam(); got != "BTC,ETH,BNB,DOT,AVAX,LTC" {
		t.Errorf("unexpected crypto list param: %s", got)
	}
}

func TestIsValid(t *testing.T) {
	cases := []struct {
		code  string
		valid bool
	}{
		{"USD", true},
		{"KRW", true},
		{"BTC", true},
		{"LTC", true},
		{"usd", false},
		{"XYZ", false},
		{"", false},
		{"USDX", false},
	}

	for _, tc := range cases {
		if got := IsValid(tc.code); got != tc.valid {
			t.Errorf("IsValid(%q) = %v, want %v", tc.code, got, tc.valid)
		}
	}
}

func TestIsCrypto(t *testing.T) {
	if !IsCrypto("BTC") {
		t.Error("BTC should be crypto")
	}
	if IsCrypto("USD") {
		t.Error("USD should not be crypto")
	}
}

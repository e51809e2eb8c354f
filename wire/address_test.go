package wire

import "testing"

func TestAddressFromScript(t *testing.T) {
	p2pkh := p2pkhScript(0x7F)
	addr, ok := AddressFromScript(p2pkh)
	if !ok {
		t.Fatal("P2PKH script not recognized")
	}
	if addr.Version != VersionP2PKH || addr.Hash[0] != 0x7F {
		t.Errorf("addr = %+v", addr)
	}

	p2sh := make([]byte, 23)
	p2sh[0] = 0xA9
	p2sh[1] = 0x14
	for i := 2; i < 22; i++ {
		p2sh[i] = 0x33
	}
	p2sh[22] = 0x87
	addr, ok = AddressFromScript(p2sh)
	if !ok {
		t.Fatal("P2SH script not recognized")
	}
	if addr.Version != VersionP2SH || addr.Hash[19] != 0x33 {
		t.Errorf("addr = %+v", addr)
	}
}

func TestAddressFromScriptRejectsOthers(t *testing.T) {
	cases := [][]byte{
		nil,
		{0x6A, 0x01, 0x02},          // OP_RETURN
		p2pkhScript(1)[:24],         // truncated P2PKH
		append(p2pkhScript(1), 0x0), // oversized
		{0x51},                      // OP_TRUE
	}
	for _, script := range cases {
		if _, ok := AddressFromScript(script); ok {
			t.Errorf("script % x unexpectedly recognized", script)
		}
	}
}

func TestAddressStringRoundTrip(t *testing.T) {
	var a Address
	a.Version = VersionP2PKH
	// all-zero P2PKH hash has a well-known base58-check form
	if got := a.String(); got != "1111111111111111111114oLvT2" {
		t.Errorf("zero P2PKH = %q", got)
	}

	for _, version := range []byte{VersionP2PKH, VersionP2SH} {
		var addr Address
		addr.Version = version
		for i := range addr.Hash {
			addr.Hash[i] = byte(i*7 + int(version))
		}
		parsed, err := ParseAddress(addr.String())
		if err != nil {
			t.Fatalf("ParseAddress(%q): %v", addr.String(), err)
		}
		if parsed != addr {
			t.Errorf("round trip: got %+v, want %+v", parsed, addr)
		}
	}
}

func TestParseAddressRejectsCorruption(t *testing.T) {
	var addr Address
	addr.Version = VersionP2PKH
	for i := range addr.Hash {
		addr.Hash[i] = byte(i)
	}
	s := []byte(addr.String())
	for i := range s {
		corrupted := append([]byte{}, s...)
		if corrupted[i] == 'x' {
			corrupted[i] = 'y'
		} else {
			corrupted[i] = 'x'
		}
		if _, err := ParseAddress(string(corrupted)); err == nil {
			t.Errorf("corruption at %d accepted: %s", i, corrupted)
		}
	}
}

func TestAddressBytesRoundTrip(t *testing.T) {
	var addr Address
	addr.Version = VersionP2SH
	addr.Hash[3] = 0x99
	parsed, err := AddressFromBytes(addr.Bytes())
	if err != nil {
		t.Fatalf("AddressFromBytes: %v", err)
	}
	if parsed != addr {
		t.Errorf("round trip: got %+v, want %+v", parsed, addr)
	}

	if _, err := AddressFromBytes(make([]byte, 20)); err == nil {
		t.Error("short buffer accepted")
	}
	bad := addr.Bytes()
	bad[0] = 42
	if _, err := AddressFromBytes(bad); err == nil {
		t.Error("unknown version accepted")
	}
}

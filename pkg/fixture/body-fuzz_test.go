package fixture

import (
	"bytes"
	"encoding/base64"
	"encoding/hex"
	"testing"
)

func FuzzParseBody_RoundTrip(f *testing.F) {
	f.Add([]byte{0xff})
	f.Add([]byte("hello"))
	f.Add([]byte{})

	f.Fuzz(func(t *testing.T, data []byte) {
		hexBody, err := ParseBody("hex,"+hex.EncodeToString(data)+";", "")
		if err != nil {
			t.Fatalf("hex literal for %x rejected: %v", data, err)
		}
		if !bytes.Equal(hexBody.Data, data) {
			t.Errorf("hex literal decoded to %x, want %x", hexBody.Data, data)
		}

		b64Body, err := ParseBody("base64,"+base64.StdEncoding.EncodeToString(data)+";", "")
		if err != nil {
			t.Fatalf("base64 literal for %x rejected: %v", data, err)
		}
		if !bytes.Equal(b64Body.Data, data) {
			t.Errorf("base64 literal decoded to %x, want %x", b64Body.Data, data)
		}
	})
}

func FuzzParseBody_NoPanic(f *testing.F) {
	f.Add("hex,ff;")
	f.Add("base64,/w==;")
	f.Add("file,;")
	f.Add("plain")

	f.Fuzz(func(t *testing.T, literal string) {
		_, _ = ParseBody(literal, t.TempDir())
	})
}

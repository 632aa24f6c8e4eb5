package store

import (
	"encoding/base64"
	"testing"
)

// FuzzCookieDecode feeds arbitrary cookie values to the decoder.
// Decode must not panic, and accepted values must survive a re-encode.
func FuzzCookieDecode(f *testing.F) {
	encoded, err := Encode(sampleState(), testSecret)
	if err == nil {
		f.Add(encoded)
		f.Add(encoded[:len(encoded)/2])
	}

	f.Add("")
	f.Add("====")
	f.Add(base64.StdEncoding.EncodeToString([]byte("c=")))
	f.Add(base64.StdEncoding.EncodeToString([]byte("username=a\x00username=b\x00c=x")))
	f.Add(base64.StdEncoding.EncodeToString([]byte("\x00\x00")))

	f.Fuzz(func(t *testing.T, raw string) {
		fields, ok := Decode(raw, testSecret, nil)
		if !ok {
			return
		}
		again, err := Encode(fields, testSecret)
		if err != nil {
			return
		}
		back, ok := Decode(again, testSecret, nil)
		if !ok || len(back) != len(fields) {
			t.Fatalf("re-encoded value did not decode: %q", again)
		}
		for k, v := range fields {
			if back[k] != v {
				t.Fatalf("field %q changed from %q to %q", k, v, back[k])
			}
		}
	})
}

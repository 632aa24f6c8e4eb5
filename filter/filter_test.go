package filter

import (
	"crypto/md5"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"strings"
	"testing"
)

func TestDigestEncodings(t *testing.T) {
	sum := md5.Sum([]byte("123"))

	got, err := Filter("md5", "123")
	if err != nil {
		t.Fatalf("Filter error: %v", err)
	}
	if got != hex.EncodeToString(sum[:]) {
		t.Fatalf("md5 default = %q, want hex", got)
	}

	got, err = Filter("md5:base64", "123")
	if err != nil {
		t.Fatalf("Filter error: %v", err)
	}
	if got != base64.RawStdEncoding.EncodeToString(sum[:]) || len(got) != 22 {
		t.Fatalf("md5:base64 = %q", got)
	}

	got, err = Filter("md5:binary", "123")
	if err != nil {
		t.Fatalf("Filter error: %v", err)
	}
	if got != string(sum[:]) {
		t.Fatal("md5:binary mismatch")
	}
	raw, _ := Filter("md5:raw", "123")
	if raw != got {
		t.Fatal("raw should alias binary")
	}
}

func TestChainAppliesLeftToRight(t *testing.T) {
	got, err := Filter("strip, lc ,sha1", "  SeCret ")
	if err != nil {
		t.Fatalf("Filter error: %v", err)
	}
	want, _ := Filter("sha1:hex", "secret")
	if got != want {
		t.Fatalf("chain = %q, want %q", got, want)
	}
}

func TestEmptySpecIsIdentity(t *testing.T) {
	got, err := Filter("", "Plain")
	if err != nil || got != "Plain" {
		t.Fatalf("Filter(\"\") = %q, %v", got, err)
	}
	ok, err := Check("", "Plain", "Plain")
	if err != nil || !ok {
		t.Fatalf("Check plain = %v, %v", ok, err)
	}
}

func TestCheckDetectsStoredEncoding(t *testing.T) {
	for _, alg := range []string{"md5", "sha1", "sha256", "sha512"} {
		for _, enc := range []string{"hex", "base64", "binary"} {
			stored, err := Filter(alg+":"+enc, "hunter2")
			if err != nil {
				t.Fatalf("Filter(%s:%s): %v", alg, enc, err)
			}
			ok, err := Check(alg, "hunter2", stored)
			if err != nil {
				t.Fatalf("Check(%s) over %s: %v", alg, enc, err)
			}
			if !ok {
				t.Fatalf("Check(%s) did not accept %s stored value", alg, enc)
			}
			ok, _ = Check(alg, "hunter3", stored)
			if ok {
				t.Fatalf("Check(%s) accepted wrong password over %s", alg, enc)
			}
		}
	}
}

func TestCheckExplicitEncodingIsExact(t *testing.T) {
	stored, _ := Filter("sha256:base64", "pw")
	ok, err := Check("sha256:hex", "pw", stored)
	if err != nil {
		t.Fatalf("Check error: %v", err)
	}
	if ok {
		t.Fatal("hex check must not accept base64 stored value")
	}
}

func TestUnknownFilterAndParam(t *testing.T) {
	if _, err := Filter("rot13", "x"); !errors.Is(err, ErrUnknownFilter) {
		t.Fatalf("unknown filter error = %v", err)
	}
	if _, err := Filter("md5:base32", "x"); !errors.Is(err, ErrInvalidParam) {
		t.Fatalf("invalid param error = %v", err)
	}
	if err := Default().Validate("lc,,md5"); !errors.Is(err, ErrUnknownFilter) {
		t.Fatalf("empty entry error = %v", err)
	}
}

func TestBcrypt(t *testing.T) {
	stored, err := Filter("bcrypt:4", "secret")
	if err != nil {
		t.Fatalf("Filter bcrypt: %v", err)
	}
	if !strings.HasPrefix(stored, "$2a$04$") {
		t.Fatalf("unexpected bcrypt prefix: %s", stored)
	}
	ok, err := Check("bcrypt", "secret", stored)
	if err != nil || !ok {
		t.Fatalf("bcrypt check = %v, %v", ok, err)
	}
	ok, err = Check("bcrypt", "nope", stored)
	if err != nil || ok {
		t.Fatalf("bcrypt wrong password = %v, %v", ok, err)
	}
	ok, err = Check("bcrypt", "secret", "not-a-hash")
	if err != nil || ok {
		t.Fatalf("bcrypt malformed stored = %v, %v", ok, err)
	}
	if _, err := Filter("bcrypt:99", "x"); !errors.Is(err, ErrInvalidParam) {
		t.Fatalf("bcrypt cost error = %v", err)
	}
}

func TestCustomRegistry(t *testing.T) {
	r := NewRegistry()
	r.Register("Reverse", func(_, v, _ string) (string, error) {
		b := []byte(v)
		for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
			b[i], b[j] = b[j], b[i]
		}
		return string(b), nil
	})
	got, err := r.Filter("reverse,uc", "abc")
	if err != nil || got != "CBA" {
		t.Fatalf("custom filter = %q, %v", got, err)
	}
	if _, err := Filter("reverse", "abc"); !errors.Is(err, ErrUnknownFilter) {
		t.Fatal("custom filter leaked into default registry")
	}
}

func TestFilterIsDeterministicAndTotal(t *testing.T) {
	inputs := []string{"", "a", "\x00\xff", strings.Repeat("x", 4096), "ünïcødé"}
	for _, spec := range []string{"md5", "sha1:base64", "sha512:binary", "lc,uc,strip"} {
		for _, in := range inputs {
			a, err := Filter(spec, in)
			if err != nil {
				t.Fatalf("Filter(%q, %q): %v", spec, in, err)
			}
			b, _ := Filter(spec, in)
			if a != b {
				t.Fatalf("Filter(%q) is not deterministic", spec)
			}
		}
	}
}

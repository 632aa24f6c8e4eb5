package filter

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"hash"
	"strings"
)

type digest struct {
	newHash func() hash.Hash
	size    int
}

func digestFilters() map[string]Func {
	algs := map[string]digest{
		"md5":    {newHash: md5.New, size: md5.Size},
		"sha1":   {newHash: sha1.New, size: sha1.Size},
		"sha256": {newHash: sha256.New, size: sha256.Size},
		"sha512": {newHash: sha512.New, size: sha512.Size},
	}
	out := make(map[string]Func, len(algs))
	for name, d := range algs {
		out[name] = d.filter
	}
	return out
}

func (d digest) filter(param, value, stored string) (string, error) {
	enc := strings.ToLower(param)
	if enc == "" {
		enc = d.detect(stored)
	}

	h := d.newHash()
	h.Write([]byte(value))
	sum := h.Sum(nil)

	switch enc {
	case "hex":
		return hex.EncodeToString(sum), nil
	case "base64":
		return base64.RawStdEncoding.EncodeToString(sum), nil
	case "binary", "raw":
		return string(sum), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidParam, param)
	}
}

// detect picks the encoding whose output length matches stored. Unknown
// lengths fall back to hex.
func (d digest) detect(stored string) string {
	switch len(stored) {
	case d.size:
		return "binary"
	case base64.RawStdEncoding.EncodedLen(d.size):
		return "base64"
	default:
		return "hex"
	}
}

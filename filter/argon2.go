package filter

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	minMemoryKB    uint32 = 8 * 1024
	minTimeCost    uint32 = 1
	minParallelism uint8  = 1
	minSaltLength  uint32 = 16
	minKeyLength   uint32 = 16
	argon2ID              = "argon2id"
)

// Argon2Params controls hashing for fresh argon2id values.
type Argon2Params struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// DefaultArgon2Params is used when the filter has no parameter.
var DefaultArgon2Params = Argon2Params{
	Memory:      64 * 1024,
	Time:        3,
	Parallelism: 2,
	SaltLength:  16,
	KeyLength:   32,
}

// Validate rejects parameters below the accepted floor.
func (p Argon2Params) Validate() error {
	switch {
	case p.Memory < minMemoryKB:
		return fmt.Errorf("%w: argon2 memory must be >= %d KB", ErrInvalidParam, minMemoryKB)
	case p.Time < minTimeCost:
		return fmt.Errorf("%w: argon2 time must be >= 1", ErrInvalidParam)
	case p.Parallelism < minParallelism:
		return fmt.Errorf("%w: argon2 parallelism must be >= 1", ErrInvalidParam)
	case p.SaltLength < minSaltLength:
		return fmt.Errorf("%w: argon2 salt length must be >= %d", ErrInvalidParam, minSaltLength)
	case p.KeyLength < minKeyLength:
		return fmt.Errorf("%w: argon2 key length must be >= %d", ErrInvalidParam, minKeyLength)
	}
	return nil
}

// HashArgon2 returns value encoded as a PHC string:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
func HashArgon2(value string, p Argon2Params) (string, error) {
	if err := p.Validate(); err != nil {
		return "", err
	}
	salt := make([]byte, p.SaltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", err
	}
	sum := argon2.IDKey([]byte(value), salt, p.Time, p.Memory, p.Parallelism, p.KeyLength)
	return fmt.Sprintf(
		"$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2ID,
		argon2.Version,
		p.Memory,
		p.Time,
		p.Parallelism,
		base64.StdEncoding.EncodeToString(salt),
		base64.StdEncoding.EncodeToString(sum),
	), nil
}

// argon2Filter hashes fresh values with params from param ("m=..;t=..;p=..",
// since ',' separates filters) or recomputes the stored hash with its own salt
// and cost.
func argon2Filter(param, value, stored string) (string, error) {
	if stored == "" {
		p := DefaultArgon2Params
		if param != "" {
			parsed, err := parseArgon2Params(strings.ReplaceAll(param, ";", ","))
			if err != nil {
				return "", fmt.Errorf("%w: %v", ErrInvalidParam, err)
			}
			p.Memory, p.Time, p.Parallelism = parsed.memory, parsed.time, parsed.parallelism
		}
		return HashArgon2(value, p)
	}

	phc, err := parsePHC(stored)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedStored, err)
	}
	sum := argon2.IDKey([]byte(value), phc.salt, phc.time, phc.memory, phc.parallelism, uint32(len(phc.hash)))
	return phc.prefix + phc.enc.EncodeToString(sum), nil
}

type phcHash struct {
	memory      uint32
	time        uint32
	parallelism uint8
	salt        []byte
	hash        []byte
	// prefix is everything up to and including the last '$'.
	prefix string
	enc    *base64.Encoding
}

func parsePHC(encoded string) (*phcHash, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" {
		return nil, errors.New("invalid PHC format")
	}
	if parts[1] != argon2ID {
		return nil, errors.New("unsupported algorithm")
	}
	if !strings.HasPrefix(parts[2], "v=") {
		return nil, errors.New("missing argon2 version")
	}
	version, err := strconv.Atoi(strings.TrimPrefix(parts[2], "v="))
	if err != nil || version != argon2.Version {
		return nil, errors.New("unsupported argon2 version")
	}

	params, err := parseArgon2Params(parts[3])
	if err != nil {
		return nil, err
	}

	enc := phcEncoding(parts[5])
	salt, err := phcEncoding(parts[4]).DecodeString(parts[4])
	if err != nil || len(salt) < int(minSaltLength) {
		return nil, errors.New("invalid salt")
	}
	sum, err := enc.DecodeString(parts[5])
	if err != nil || len(sum) == 0 {
		return nil, errors.New("invalid hash")
	}

	return &phcHash{
		memory:      params.memory,
		time:        params.time,
		parallelism: params.parallelism,
		salt:        salt,
		hash:        sum,
		prefix:      encoded[:strings.LastIndex(encoded, "$")+1],
		enc:         enc,
	}, nil
}

// phcEncoding accepts both the padded form and the unpadded form from the
// PHC string format reference.
func phcEncoding(s string) *base64.Encoding {
	if strings.HasSuffix(s, "=") || len(s)%4 == 0 {
		return base64.StdEncoding
	}
	return base64.RawStdEncoding
}

type argon2Params struct {
	memory      uint32
	time        uint32
	parallelism uint8
}

func parseArgon2Params(part string) (*argon2Params, error) {
	pairs := strings.Split(part, ",")
	if len(pairs) != 3 {
		return nil, errors.New("invalid parameter format")
	}

	var (
		memorySet, timeSet, parallelismSet bool
		params                             argon2Params
	)
	for _, pair := range pairs {
		k, v, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, errors.New("invalid parameter entry")
		}
		switch k {
		case "m":
			n, err := strconv.ParseUint(v, 10, 32)
			if err != nil || n < uint64(minMemoryKB) {
				return nil, errors.New("invalid memory parameter")
			}
			params.memory = uint32(n)
			memorySet = true
		case "t":
			n, err := strconv.ParseUint(v, 10, 32)
			if err != nil || n < uint64(minTimeCost) {
				return nil, errors.New("invalid time parameter")
			}
			params.time = uint32(n)
			timeSet = true
		case "p":
			n, err := strconv.ParseUint(v, 10, 8)
			if err != nil || n < uint64(minParallelism) {
				return nil, errors.New("invalid parallelism parameter")
			}
			params.parallelism = uint8(n)
			parallelismSet = true
		default:
			return nil, errors.New("unsupported parameter")
		}
	}
	if !memorySet || !timeSet || !parallelismSet {
		return nil, errors.New("missing parameters")
	}
	return &params, nil
}

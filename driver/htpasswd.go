package driver

import (
	"context"
	"crypto/sha1"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"

	"github.com/GehirnInc/crypt"
	_ "github.com/GehirnInc/crypt/apr1_crypt"
	_ "github.com/GehirnInc/crypt/md5_crypt"
	_ "github.com/GehirnInc/crypt/sha256_crypt"
	_ "github.com/GehirnInc/crypt/sha512_crypt"

	"github.com/MrEthical07/goAuthen/filter"
	"github.com/MrEthical07/goAuthen/internal/optdecode"
)

// Htpasswd checks username and password against Apache style password files.
//
// Options: FILES (or positional arguments) lists the files, tried in order.
// WATCH keeps parsed files in the engine's FileCache instead of reading them
// on every login. PLAIN allows entries stored as clear text.
//
// Supported entries: {SHA}, bcrypt ($2a$, $2b$, $2y$), argon2id PHC,
// MD5-crypt ($apr1$, $1$) and SHA-crypt ($5$, $6$). Entries in any other form,
// DES crypt(3) included, never match unless PLAIN is set.
type Htpasswd struct {
	files   []string
	plain   bool
	cache   *FileCache
	filters *filter.Registry
	logger  *slog.Logger
}

type htpasswdOptions struct {
	Files []string `mapstructure:"files"`
	Watch bool     `mapstructure:"watch"`
	Plain bool     `mapstructure:"plain"`
}

// NewHtpasswd builds an Htpasswd driver.
func NewHtpasswd(opts Options, deps Deps) (Driver, error) {
	raw := optdecode.Clone(opts)
	var files []string
	if args, ok := optdecode.Take(raw, optdecode.ArgsKey); ok {
		s, err := optdecode.Strings(args)
		if err != nil {
			return nil, invalidOptions(err)
		}
		files = append(files, s...)
	}
	var o htpasswdOptions
	if err := optdecode.Decode(raw, &o); err != nil {
		return nil, invalidOptions(err)
	}
	files = append(files, o.Files...)
	if len(files) == 0 {
		return nil, invalidOptions(fmt.Errorf("htpasswd driver needs at least one file"))
	}

	h := &Htpasswd{files: files, plain: o.Plain, filters: deps.Filters, logger: deps.Logger}
	if o.Watch {
		h.cache = deps.Files
	}
	return h, nil
}

// VerifyCredentials returns the username on the first file whose entry
// matches. Missing files are skipped; if every file is missing the backend
// is considered broken.
func (h *Htpasswd) VerifyCredentials(_ context.Context, creds ...string) (string, error) {
	if len(creds) < 2 || creds[0] == "" {
		return "", nil
	}
	user, password := creds[0], creds[1]

	missing := 0
	for _, path := range h.files {
		entries, err := h.load(path)
		if err != nil {
			if isNotExist(err) {
				h.logger.Warn("password file missing", "path", path)
				missing++
				continue
			}
			return "", fmt.Errorf("%w: read %s: %v", ErrBackend, path, err)
		}
		hash, ok := entries[user]
		if !ok {
			continue
		}
		if h.matches(hash, password) {
			return user, nil
		}
	}
	if missing == len(h.files) {
		return "", fmt.Errorf("%w: none of the password files exist", ErrBackend)
	}
	return "", nil
}

func (h *Htpasswd) load(path string) (map[string]string, error) {
	if h.cache != nil {
		return h.cache.Load(path)
	}
	return readPasswordFile(path)
}

func (h *Htpasswd) matches(hash, password string) bool {
	switch {
	case strings.HasPrefix(hash, "{SHA}"):
		sum := sha1.Sum([]byte(password))
		want := base64.StdEncoding.EncodeToString(sum[:])
		return subtle.ConstantTimeCompare([]byte(want), []byte(hash[len("{SHA}"):])) == 1
	case strings.HasPrefix(hash, "$2a$"), strings.HasPrefix(hash, "$2b$"), strings.HasPrefix(hash, "$2y$"):
		ok, _ := h.filters.Check("bcrypt", password, hash)
		return ok
	case strings.HasPrefix(hash, "$argon2id$"):
		ok, _ := h.filters.Check("argon2", password, hash)
		return ok
	case crypt.IsHashSupported(hash):
		return crypt.NewFromHash(hash).Verify(hash, []byte(password)) == nil
	case h.plain:
		return subtle.ConstantTimeCompare([]byte(hash), []byte(password)) == 1
	default:
		h.logger.Warn("unsupported password file entry; set PLAIN for clear text entries")
		return false
	}
}

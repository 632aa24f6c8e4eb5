package driver

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"

	"github.com/MrEthical07/goAuthen/filter"
	"github.com/MrEthical07/goAuthen/internal/optdecode"
)

// TOTP checks three credentials: username, password and a time-based
// one-time code.
//
//	USERS   username -> {password, filter, secret}  (secret is base32)
//	DIGITS  6 or 8, default 6
//	PERIOD  step in seconds, default 30
//	SKEW    accepted steps on each side, default 1
type TOTP struct {
	users   map[string]totpUser
	opts    totp.ValidateOpts
	filters *filter.Registry
	now     func() time.Time
}

type totpUser struct {
	Password string `mapstructure:"password" validate:"required"`
	Filter   string `mapstructure:"filter"`
	Secret   string `mapstructure:"secret" validate:"required"`
}

type totpOptions struct {
	Users  map[string]totpUser `mapstructure:"users" validate:"required,min=1,dive"`
	Digits int                 `mapstructure:"digits" validate:"omitempty,oneof=6 8"`
	Period uint                `mapstructure:"period"`
	Skew   *uint               `mapstructure:"skew"`
}

// NewTOTP builds a TOTP driver.
func NewTOTP(opts Options, deps Deps) (Driver, error) {
	var o totpOptions
	if err := optdecode.Decode(opts, &o); err != nil {
		return nil, invalidOptions(err)
	}
	d := &TOTP{
		users:   o.Users,
		filters: deps.Filters,
		now:     deps.Now,
		opts: totp.ValidateOpts{
			Period:    30,
			Skew:      1,
			Digits:    otp.DigitsSix,
			Algorithm: otp.AlgorithmSHA1,
		},
	}
	if o.Digits == 8 {
		d.opts.Digits = otp.DigitsEight
	}
	if o.Period > 0 {
		d.opts.Period = o.Period
	}
	if o.Skew != nil {
		d.opts.Skew = *o.Skew
	}
	for name, u := range o.Users {
		if u.Filter != "" {
			if err := deps.Filters.Validate(u.Filter); err != nil {
				return nil, invalidOptions(fmt.Errorf("user %q: %w", name, err))
			}
		}
	}
	return d, nil
}

// VerifyCredentials requires a matching password and a current code.
func (d *TOTP) VerifyCredentials(_ context.Context, creds ...string) (string, error) {
	if len(creds) < 3 || creds[0] == "" {
		return "", nil
	}
	u, ok := d.users[creds[0]]
	if !ok {
		return "", nil
	}
	match, err := checkSecret(d.filters, u.Filter, creds[1], u.Password)
	if err != nil || !match {
		return "", err
	}

	code := strings.TrimSpace(creds[2])
	if len(code) != d.opts.Digits.Length() {
		return "", nil
	}
	valid, err := totp.ValidateCustom(code, u.Secret, d.now(), d.opts)
	if err != nil {
		return "", fmt.Errorf("%w: totp secret for %q: %v", ErrBackend, creds[0], err)
	}
	if !valid {
		return "", nil
	}
	return creds[0], nil
}

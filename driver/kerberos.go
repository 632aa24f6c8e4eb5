package driver

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jcmturner/gokrb5/v8/client"
	"github.com/jcmturner/gokrb5/v8/config"
	"github.com/jcmturner/gokrb5/v8/iana/errorcode"
	"github.com/jcmturner/gokrb5/v8/krberror"

	"github.com/MrEthical07/goAuthen/internal/optdecode"
)

// Kerberos verifies username and password with an AS exchange against the
// realm's KDC.
//
//	REALM        realm to authenticate in (required)
//	KRB5_CONF    path to a krb5.conf
//	KRB5_CONFIG  inline krb5.conf contents, used when KRB5_CONF is empty
type Kerberos struct {
	realm string
	cfg   *config.Config
}

type kerberosOptions struct {
	Realm      string `mapstructure:"realm" validate:"required"`
	Krb5Conf   string `mapstructure:"krb5_conf"`
	Krb5Config string `mapstructure:"krb5_config"`
}

// NewKerberos builds a Kerberos driver.
func NewKerberos(opts Options, _ Deps) (Driver, error) {
	var o kerberosOptions
	if err := optdecode.Decode(opts, &o); err != nil {
		return nil, invalidOptions(err)
	}

	var (
		cfg *config.Config
		err error
	)
	switch {
	case o.Krb5Conf != "":
		cfg, err = config.Load(o.Krb5Conf)
	case o.Krb5Config != "":
		cfg, err = config.NewFromString(o.Krb5Config)
	default:
		err = errors.New("KRB5_CONF or KRB5_CONFIG is required")
	}
	if err != nil {
		return nil, invalidOptions(fmt.Errorf("krb5 configuration: %w", err))
	}
	return &Kerberos{realm: o.Realm, cfg: cfg}, nil
}

// VerifyCredentials logs in and immediately destroys the client session.
func (k *Kerberos) VerifyCredentials(ctx context.Context, creds ...string) (string, error) {
	if len(creds) < 2 || creds[0] == "" || creds[1] == "" {
		return "", nil
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	cl := client.NewWithPassword(creds[0], k.realm, creds[1], k.cfg, client.DisablePAFXFAST(true))
	defer cl.Destroy()

	if err := cl.Login(); err != nil {
		if rejectedCredentials(err) {
			return "", nil
		}
		return "", fmt.Errorf("%w: kerberos login: %v", ErrBackend, err)
	}
	return creds[0], nil
}

var rejectionCodes = []int32{
	errorcode.KDC_ERR_C_PRINCIPAL_UNKNOWN,
	errorcode.KDC_ERR_CLIENT_REVOKED,
	errorcode.KDC_ERR_KEY_EXPIRED,
	errorcode.KDC_ERR_PREAUTH_FAILED,
}

// rejectedCredentials separates a KDC saying no from a KDC that could not be
// reached or understood.
func rejectedCredentials(err error) bool {
	var kerr krberror.Krberror
	if !errors.As(err, &kerr) {
		return false
	}
	msg := kerr.Error()
	if strings.Contains(msg, "client password/keytab incorrect") {
		return true
	}
	if kerr.RootCause != krberror.KDCError {
		return false
	}
	for _, code := range rejectionCodes {
		if strings.Contains(msg, errorcode.Lookup(code)) {
			return true
		}
	}
	return false
}

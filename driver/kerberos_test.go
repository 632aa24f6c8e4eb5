package driver

import (
	"errors"
	"testing"

	"github.com/jcmturner/gokrb5/v8/iana/errorcode"
	"github.com/jcmturner/gokrb5/v8/krberror"
	"github.com/jcmturner/gokrb5/v8/messages"
	"github.com/jcmturner/gokrb5/v8/types"
)

const testKrb5Conf = `[libdefaults]
  default_realm = EXAMPLE.COM

[realms]
  EXAMPLE.COM = {
    kdc = 127.0.0.1:88
  }
`

func TestKerberosOptions(t *testing.T) {
	r := NewRegistry()
	if _, err := r.New("kerberos", Options{"realm": "EXAMPLE.COM", "krb5_config": testKrb5Conf}, Deps{}); err != nil {
		t.Fatalf("New(kerberos) error: %v", err)
	}
	if _, err := r.New("kerberos", Options{"krb5_config": testKrb5Conf}, Deps{}); !errors.Is(err, ErrInvalidOptions) {
		t.Fatalf("missing realm error = %v", err)
	}
	if _, err := r.New("kerberos", Options{"realm": "EXAMPLE.COM"}, Deps{}); !errors.Is(err, ErrInvalidOptions) {
		t.Fatalf("missing config error = %v", err)
	}
	if _, err := r.New("kerberos", Options{"realm": "EXAMPLE.COM", "krb5_conf": "/nonexistent/krb5.conf"}, Deps{}); !errors.Is(err, ErrInvalidOptions) {
		t.Fatalf("missing config file error = %v", err)
	}
}

func TestKerberosRejectionClassification(t *testing.T) {
	preauth := krberror.Errorf(messages.NewKRBError(types.PrincipalName{}, "EXAMPLE.COM", errorcode.KDC_ERR_PREAUTH_FAILED, ""), krberror.KDCError, "AS Exchange Error: kerberos error response from KDC")
	if !rejectedCredentials(preauth) {
		t.Fatalf("pre-auth failure should be a rejection: %v", preauth)
	}
	network := krberror.NewErrorf(krberror.NetworkingError, "AS Exchange Error: failed sending AS_REQ to KDC")
	if rejectedCredentials(network) {
		t.Fatal("network failure must not be a rejection")
	}
	if rejectedCredentials(errors.New("plain")) {
		t.Fatal("non kerberos error must not be a rejection")
	}
}

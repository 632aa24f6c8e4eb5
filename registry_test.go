package goAuthen

import (
	"errors"
	"strings"
	"testing"
)

func TestRegistryConfigureMerges(t *testing.T) {
	r := NewRegistry()
	if err := r.Configure("shop", "DRIVER", "dummy"); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	if err := r.Configure("shop", "LOGIN_URL", "/login"); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	cfg, err := r.Config("shop")
	if err != nil {
		t.Fatalf("Config: %v", err)
	}
	if len(cfg.Drivers) != 1 || cfg.LoginURL != "/login" {
		t.Fatalf("merged config = %+v", cfg)
	}

	if err := r.Configure("shop", "DRIVER", "other"); err != nil {
		t.Fatalf("override: %v", err)
	}
	cfg, _ = r.Config("shop")
	if cfg.Drivers[0].Name != "other" || cfg.LoginURL != "/login" {
		t.Fatalf("override config = %+v", cfg)
	}
}

func TestRegistryFailedConfigureKeepsState(t *testing.T) {
	r := NewRegistry()
	if err := r.Configure("", "LOGIN_URL", "/login"); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	if err := r.Configure("", "BOGUS", 1); !errors.Is(err, ErrUnknownOption) {
		t.Fatalf("error = %v", err)
	}
	cfg, err := r.Config(DefaultApp)
	if err != nil || cfg.LoginURL != "/login" {
		t.Fatalf("config after failed merge = %+v, %v", cfg, err)
	}
}

func TestRegistryUnknownApp(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Config("nope"); !errors.Is(err, ErrUnknownApp) {
		t.Fatalf("error = %v", err)
	}
}

func TestRegistryProtectAccumulates(t *testing.T) {
	r := NewRegistry()
	r.Protect("a", Runmode("x"))
	r.Protect("a", Runmode("y"))

	cfg, err := r.Config("a")
	if err != nil {
		t.Fatalf("Protect should register the app: %v", err)
	}
	if len(cfg.Protected) != 2 {
		t.Fatalf("rules = %d, want 2", len(cfg.Protected))
	}

	// Replacing options keeps rules added with Protect.
	if err := r.Configure("a", "DRIVER", "dummy"); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	cfg, _ = r.Config("a")
	if len(cfg.Protected) != 2 {
		t.Fatalf("rules after Configure = %d", len(cfg.Protected))
	}
}

func TestRegistryFreeze(t *testing.T) {
	r := NewRegistry()
	if err := r.SetConfig("a", Config{Credentials: []string{"u"}}); err != nil {
		t.Fatalf("SetConfig: %v", err)
	}
	r.freeze("a")
	if !r.Frozen("a") || r.Frozen("b") {
		t.Fatal("freeze state wrong")
	}
	if err := r.Configure("a", "LOGIN_URL", "/x"); !errors.Is(err, ErrConfigFrozen) {
		t.Fatalf("Configure error = %v", err)
	}
	if err := r.SetConfig("a", Config{Credentials: []string{"u"}}); !errors.Is(err, ErrConfigFrozen) {
		t.Fatalf("SetConfig error = %v", err)
	}
	if err := r.Configure("b", "LOGIN_URL", "/x"); err != nil {
		t.Fatalf("other apps stay writable: %v", err)
	}

	apps := r.Apps()
	if len(apps) != 2 || apps[0] != "a" || apps[1] != "b" {
		t.Fatalf("Apps = %v", apps)
	}
}

func TestRegistrySetConfigValidates(t *testing.T) {
	r := NewRegistry()
	err := r.SetConfig("a", Config{})
	if !errors.Is(err, ErrInvalidOption) {
		t.Fatalf("empty credentials error = %v", err)
	}
}

func TestConfigIsCopied(t *testing.T) {
	r := NewRegistry()
	if err := r.Configure("a", "DRIVER", []any{"generic", "USERS", map[string]any{"u": "p"}}); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	cfg, _ := r.Config("a")
	cfg.Drivers[0].Options["USERS"] = nil
	cfg.Credentials[0] = "changed"

	again, _ := r.Config("a")
	if again.Drivers[0].Options["USERS"] == nil || again.Credentials[0] == "changed" {
		t.Fatal("Config returned shared state")
	}
}

func TestRegistryAppsSorted(t *testing.T) {
	r := NewRegistry()
	for _, app := range []string{"zeta", "mail", "alpha", "cart", "blog"} {
		if err := r.Configure(app, "LOGIN_URL", "/login"); err != nil {
			t.Fatalf("Configure(%s): %v", app, err)
		}
	}
	if got := strings.Join(r.Apps(), ","); got != "alpha,blog,cart,mail,zeta" {
		t.Fatalf("Apps = %s", got)
	}
}

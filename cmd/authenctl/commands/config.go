package commands

import (
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"

	"github.com/spf13/viper"

	goAuthen "github.com/MrEthical07/goAuthen"
)

// fileConfig is the authenctl configuration file.
//
//	listen: ":8080"
//	redis: "localhost:6379"
//	cookie_secret: "change-me"
//	audit: true
//	apps:
//	  shop:
//	    protect: [orders]
//	    options:
//	      DRIVER:
//	        - name: htpasswd
//	          files: [/etc/shop.htpasswd]
//	      LOGIN_SESSION_TIMEOUT: 15m
type fileConfig struct {
	Listen       string             `mapstructure:"listen"`
	Redis        string             `mapstructure:"redis"`
	CookieSecret string             `mapstructure:"cookie_secret"`
	Audit        bool               `mapstructure:"audit"`
	WatchFiles   bool               `mapstructure:"watch_files"`
	Apps         map[string]appFile `mapstructure:"apps"`
}

type appFile struct {
	Protect []string       `mapstructure:"protect"`
	Options map[string]any `mapstructure:"options"`
}

// loadConfig reads path with viper. Scalar settings may be overridden by
// AUTHEN_* environment variables.
func loadConfig(path string) (*fileConfig, error) {
	v := viper.New()
	v.SetEnvPrefix("AUTHEN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.SetDefault("listen", ":8080")

	if path == "" {
		return nil, fmt.Errorf("no configuration file given; use --config")
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg fileConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if len(cfg.Apps) == 0 {
		return nil, fmt.Errorf("%s defines no apps", path)
	}
	return &cfg, nil
}

func (f *fileConfig) appNames() []string {
	names := make([]string, 0, len(f.Apps))
	for name := range f.Apps {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// buildEngine configures every app of f on a new engine. auditOut receives
// audit events when audit is enabled.
func (f *fileConfig) buildEngine(logger *slog.Logger, auditOut io.Writer) (*goAuthen.Engine, error) {
	ec := goAuthen.DefaultEngineConfig()
	ec.CookieSecret = f.CookieSecret
	ec.WatchFiles = f.WatchFiles

	b := goAuthen.New().WithLogger(logger)
	if f.Audit && auditOut != nil {
		ec.Audit.Enabled = true
		b = b.WithAuditSink(goAuthen.NewJSONWriterSink(auditOut))
	}
	b = b.WithConfig(ec)

	for _, name := range f.appNames() {
		opts := f.Apps[name].Options
		if opts == nil {
			opts = map[string]any{}
		}
		b = b.WithApp(name, opts)
	}
	engine, err := b.Build()
	if err != nil {
		return nil, err
	}
	for _, name := range f.appNames() {
		if p := f.Apps[name].Protect; len(p) > 0 {
			engine.ProtectRunmodes(name, goAuthen.Runmodes(p...)...)
		}
	}
	return engine, nil
}

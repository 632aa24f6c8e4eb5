package commands

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"

	"github.com/spf13/cobra"

	goAuthen "github.com/MrEthical07/goAuthen"
	"github.com/MrEthical07/goAuthen/store"
)

var (
	verifyApp  string
	verifyUser string
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check credentials against an app's drivers",
	Long: `verify prompts for credentials and runs one login attempt through the
app's configured drivers, the same way a request carrying them would.`,
	RunE: runVerify,
}

func init() {
	verifyCmd.Flags().StringVarP(&verifyApp, "app", "a", goAuthen.DefaultApp, "application id")
	verifyCmd.Flags().StringVarP(&verifyUser, "user", "u", "", "username (prompted when empty)")
}

func runVerify(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	engine, err := cfg.buildEngine(newLogger(), os.Stderr)
	if err != nil {
		return err
	}
	defer engine.Close()

	appCfg, err := engine.Registry().Config(verifyApp)
	if err != nil {
		return err
	}

	params := map[string]string{}
	for i, field := range appCfg.Credentials {
		var v string
		switch {
		case i == 0 && verifyUser != "":
			v = verifyUser
		case i == 0:
			v, err = promptText(field)
		default:
			v, err = promptSecret(field)
		}
		if err != nil {
			return err
		}
		params[field] = v
	}

	h := newCLIHost(params)
	c := engine.NewController(context.Background(), verifyApp, h)
	if err := c.Initialize(); err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if !c.IsAuthenticated() {
		fmt.Fprintln(out, "rejected")
		return fmt.Errorf("credentials rejected by every driver")
	}
	fmt.Fprintf(out, "accepted as %s\n", c.Username())
	return nil
}

// cliHost is a request without a client: no cookies come in and the ones
// set go nowhere.
type cliHost struct {
	params  map[string]string
	header  http.Header
	current string
	modes   map[string]http.HandlerFunc
}

func newCLIHost(params map[string]string) *cliHost {
	return &cliHost{params: params, header: http.Header{}, current: "verify", modes: map[string]http.HandlerFunc{}}
}

func (h *cliHost) Param(name string) string                         { return h.params[name] }
func (h *cliHost) Cookie(string) (string, bool)                     { return "", false }
func (h *cliHost) SetCookie(c *http.Cookie)                         { store.ReplaceCookie(h.header, c) }
func (h *cliHost) Header() http.Header                              { return h.header }
func (h *cliHost) URL() *url.URL                                    { return &url.URL{Path: "/"} }
func (h *cliHost) CurrentRunmode() string                           { return h.current }
func (h *cliHost) OverrideRunmode(name string)                      { h.current = name }
func (h *cliHost) HasRunmode(name string) bool                      { _, ok := h.modes[name]; return ok }
func (h *cliHost) RegisterRunmode(name string, fn http.HandlerFunc) { h.modes[name] = fn }

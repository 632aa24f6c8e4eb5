package goAuthen

import (
	"html/template"
	"strconv"
	"strings"
)

var loginTemplate = template.Must(template.New("login").Parse(`<form method="post" action="{{.Action}}" class="authen-login">
<fieldset>
<legend>Sign in</legend>
{{- with .Message}}
<p class="authen-error">{{.}}</p>
{{- end}}
{{- range .Fields}}
<label>{{.Label}} <input type="{{.Type}}" name="{{.Name}}"{{with .Value}} value="{{.}}"{{end}}></label>
{{- end}}
{{- with .Destination}}
<input type="hidden" name="destination" value="{{.}}">
{{- end}}
<button type="submit">Sign in</button>
</fieldset>
</form>
`))

type loginField struct {
	Label string
	Name  string
	Type  string
	Value string
}

type loginFormData struct {
	Action      string
	Message     string
	Fields      []loginField
	Destination string
}

// LoginBox returns the login form HTML: the RENDER_LOGIN output when set,
// otherwise a minimal built-in form posting the configured credential
// fields back to the current URL.
func (c *Controller) LoginBox() string {
	if c.cfg.RenderLogin != nil {
		return c.cfg.RenderLogin(c)
	}

	data := loginFormData{Action: "/"}
	if u := c.host.URL(); u != nil && u.Path != "" {
		data.Action = u.Path
	}

	switch {
	case c.IsLoginTimeout():
		data.Message = "Your login has timed out. Please sign in again."
	case c.LoginAttempts() > 0:
		data.Message = "Invalid username or password (login attempt " + strconv.Itoa(c.LoginAttempts()) + ")."
	}

	for i, name := range c.cfg.Credentials {
		f := loginField{Label: fieldLabel(name), Name: name, Type: "password"}
		if i == 0 {
			f.Type = "text"
			f.Value = c.host.Param(name)
		}
		data.Fields = append(data.Fields, f)
	}

	data.Destination = c.Destination()
	if data.Destination == "" && c.host.CurrentRunmode() != RunmodeLogin {
		if u := c.host.URL(); u != nil {
			data.Destination = sanitizeDestination(u.RequestURI())
		}
	}

	var b strings.Builder
	if err := loginTemplate.Execute(&b, data); err != nil {
		c.engine.logger.Error("render login form", "app", c.app, "error", err)
		return ""
	}
	return b.String()
}

// fieldLabel turns "authen_username" into "Username".
func fieldLabel(name string) string {
	label := strings.TrimPrefix(name, "authen_")
	label = strings.ReplaceAll(label, "_", " ")
	if label == "" {
		return name
	}
	return strings.ToUpper(label[:1]) + label[1:]
}

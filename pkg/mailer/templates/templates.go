package templates

import (
	"bytes"
	"encoding/json"
	"fmt"
	htmpl "html/template"
	"reflect"
	"sort"
	"strings"
	texttpl "text/template"
	"time"
)

// EmailData defines standard fields for account notification templates.
type EmailData struct {
	Name           string            `json:"Name"`
	Username       string            `json:"Username"`
	Email          string            `json:"Email"`
	RecipientEmail string            `json:"RecipientEmail"`
	AppName        string            `json:"AppName"`
	Time           string            `json:"Time"`
	Changes        map[string]string `json:"Changes"`
}

// Option pattern
type Option func(*EmailData)

func WithTime(t time.Time) Option {
	return func(d *EmailData) { d.Time = t.UTC().Format("02 January 2006, 15:04 MST") }
}

func WithChanges(ch map[string]string) Option {
	return func(d *EmailData) { d.Changes = ch }
}

func WithAppName(name string) Option {
	return func(d *EmailData) { d.AppName = name }
}

// NewEmailData builds the data for a recipient and applies opts.
func NewEmailData(name, username, email string, opts ...Option) EmailData {
	d := EmailData{Name: name, Username: username, Email: email, RecipientEmail: email}
	for _, o := range opts {
		o(&d)
	}
	return d
}

// ToMap converts EmailData to a map[string]any for EmailJob.Data
func ToMap(d EmailData) map[string]any {
	b, _ := json.Marshal(d)
	var m map[string]any
	_ = json.Unmarshal(b, &m)
	return m
}

// defaultFn supports pipe usage: {{ .Value | default "Fallback" }}
func defaultFn(fallback any, value any) any {
	switch x := value.(type) {
	case string:
		if strings.TrimSpace(x) == "" {
			return fallback
		}
		return x
	case nil:
		return fallback
	default:
		rv := reflect.ValueOf(value)
		if !rv.IsValid() {
			return fallback
		}
		zero := reflect.Zero(rv.Type()).Interface()
		if reflect.DeepEqual(value, zero) {
			return fallback
		}
		return value
	}
}

// sortedKeys gives templates a stable iteration order over change sets.
func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func baseFuncs() map[string]any {
	return map[string]any{
		"upper":      strings.ToUpper,
		"default":    defaultFn,
		"sortedKeys": sortedKeys,
	}
}

var (
	htmlFuncMap = htmpl.FuncMap(baseFuncs())
	textFuncMap = texttpl.FuncMap(baseFuncs())
)

// ---- Template names ----

const (
	ProfileUpdated = "profile_updated"
	AccountCreated = "account_created"
)

type definition struct {
	subject string
	text    string
	html    string
}

var definitions = map[string]definition{
	ProfileUpdated: {
		subject: `Your profile was updated successfully`,
		text: `Hello {{ .Name | default .Username }},

The following details of your {{ .AppName | default "account" }} profile were changed{{ with .Time }} on {{ . }}{{ end }}:
{{ range $k := sortedKeys .Changes }}  - {{ $k }}: {{ index $.Changes $k }}
{{ end }}
If you did not make this change, contact support.`,
		html: `<p>Hello {{ .Name | default .Username }},</p>
<p>The following details of your {{ .AppName | default "account" }} profile were changed{{ with .Time }} on {{ . }}{{ end }}:</p>
<ul>{{ range $k := sortedKeys .Changes }}<li><b>{{ $k }}</b>: {{ index $.Changes $k }}</li>{{ end }}</ul>
<p>If you did not make this change, contact support.</p>`,
	},
	AccountCreated: {
		subject: `Welcome, {{ .Username }}`,
		text:    `Your {{ .AppName | default "account" }} account {{ .Username }} is ready.`,
		html:    `<p>Your {{ .AppName | default "account" }} account <b>{{ .Username }}</b> is ready.</p>`,
	},
}

func renderText(name, src string, data any) (string, error) {
	tpl, err := texttpl.New(name).Funcs(textFuncMap).Parse(src)
	if err != nil {
		return "", fmt.Errorf("parse text %q: %w", name, err)
	}
	var buf bytes.Buffer
	if err := tpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("exec %q: %w", name, err)
	}
	return buf.String(), nil
}

func renderHTML(name, src string, data any) (string, error) {
	tpl, err := htmpl.New(name).Funcs(htmlFuncMap).Parse(src)
	if err != nil {
		return "", fmt.Errorf("parse html %q: %w", name, err)
	}
	var buf bytes.Buffer
	if err := tpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("exec %q: %w", name, err)
	}
	return buf.String(), nil
}

// Render renders subject, text and html for the named template.
func Render(name string, data any) (subject string, text string, html string, err error) {
	def, ok := definitions[name]
	if !ok {
		return "", "", "", fmt.Errorf("unknown template %q", name)
	}
	if subject, err = renderText(name+".subject", def.subject, data); err != nil {
		return "", "", "", err
	}
	if text, err = renderText(name+".text", def.text, data); err != nil {
		return "", "", "", err
	}
	if html, err = renderHTML(name+".html", def.html, data); err != nil {
		return "", "", "", err
	}
	return subject, text, html, nil
}

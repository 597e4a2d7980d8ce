package pipeline

import (
	"bytes"
	"hash/fnv"
	"os"
	"text/template"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/leadgen/internal/model"
)

// MessageTemplate is one outreach message skeleton. Subject and Body are
// text/template strings evaluated against templateData.
type MessageTemplate struct {
	Name    string `yaml:"name"`
	Subject string `yaml:"subject"`
	Body    string `yaml:"body"`
}

// MessageTemplates holds the template pool used when AI personalization is
// unavailable or fails.
type MessageTemplates struct {
	Templates []MessageTemplate `yaml:"templates"`
}

// templateData is what templates can reference.
type templateData struct {
	Name     string
	City     string
	State    string
	Category string
	Overview string
}

// DefaultTemplates returns the built-in template pool.
func DefaultTemplates() *MessageTemplates {
	return &MessageTemplates{Templates: []MessageTemplate{
		{
			Name:    "local-intro",
			Subject: "Quick question about {{.Name}}",
			Body: "Hi,\n\nI came across {{.Name}}{{if .City}} in {{.City}}{{end}} and was impressed " +
				"by what you've built. We help businesses like yours bring in more customers " +
				"without adding to your workload.\n\nWould you be open to a quick chat this week?\n",
		},
		{
			Name:    "category-angle",
			Subject: "Helping {{if .Category}}{{.Category}} businesses{{else}}local businesses{{end}} grow",
			Body: "Hi,\n\nWe work with {{if .Category}}{{.Category}} businesses{{else}}local businesses{{end}}" +
				"{{if .City}} around {{.City}}{{end}} on growing their customer base. " +
				"{{.Name}} looks like a great fit for what we do.\n\n" +
				"Do you have 15 minutes this week to see if it makes sense for you?\n",
		},
	}}
}

// LoadTemplates reads a template pool from a YAML file.
func LoadTemplates(path string) (*MessageTemplates, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "templates: read %s", path)
	}
	var t MessageTemplates
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return nil, eris.Wrapf(err, "templates: parse %s", path)
	}
	if len(t.Templates) == 0 {
		return nil, eris.Errorf("templates: %s defines no templates", path)
	}
	return &t, nil
}

// Render produces a message for the lead from the pool, choosing the
// template deterministically so re-runs yield the same message.
func (t *MessageTemplates) Render(lead *model.Lead) (*model.PersonalizedMessage, error) {
	if len(t.Templates) == 0 {
		return nil, eris.New("templates: empty pool")
	}
	chosen := t.Templates[pickIndex(lead.PlaceID, len(t.Templates))]

	data := templateData{
		Name:     lead.Name,
		City:     lead.City,
		State:    lead.State,
		Category: humanizeCategory(lead.Category),
	}
	if lead.ResearchData != nil {
		data.Overview = lead.ResearchData.Overview
	}

	subject, err := renderTemplate(chosen.Name+".subject", chosen.Subject, data)
	if err != nil {
		return nil, err
	}
	body, err := renderTemplate(chosen.Name+".body", chosen.Body, data)
	if err != nil {
		return nil, err
	}

	return &model.PersonalizedMessage{
		Subject:      subject,
		Body:         body,
		TemplateUsed: chosen.Name,
	}, nil
}

func renderTemplate(name, text string, data templateData) (string, error) {
	tmpl, err := template.New(name).Parse(text)
	if err != nil {
		return "", eris.Wrapf(err, "templates: parse %s", name)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", eris.Wrapf(err, "templates: render %s", name)
	}
	return buf.String(), nil
}

func pickIndex(key string, n int) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32()) % n
}

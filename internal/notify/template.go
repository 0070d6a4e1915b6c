package notify

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Template is the outreach message. Body may contain NameToken.
type Template struct {
	Sender  string `yaml:"sender"`
	Subject string `yaml:"subject"`
	Body    string `yaml:"body"`
}

type templateFile struct {
	EmailTemplate Template `yaml:"email_template"`
}

// LoadTemplate reads a YAML file of the form
//
//	email_template:
//	  sender: ...
//	  subject: ...
//	  body: ...
func LoadTemplate(path string) (Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Template{}, eris.Wrapf(err, "notify: read template %s", path)
	}

	var f templateFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return Template{}, eris.Wrapf(err, "notify: parse template %s", path)
	}
	if f.EmailTemplate.Subject == "" || f.EmailTemplate.Body == "" {
		return Template{}, eris.Errorf("notify: template %s needs email_template.subject and email_template.body", path)
	}
	return f.EmailTemplate, nil
}

package notification

import (
	"fmt"
	"strings"
	"sync"
)

// Template defines a reusable notification template. Subject and Body use
// {{key}} placeholders replaced at render time.
type Template struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// TemplateEngine manages notification templates and renders them with data.
type TemplateEngine struct {
	mu        sync.RWMutex
	templates map[string]*Template
}

// NewTemplateEngine creates a TemplateEngine with the built-in templates pre-registered.
func NewTemplateEngine() *TemplateEngine {
	e := &TemplateEngine{
		templates: make(map[string]*Template),
	}
	e.registerBuiltIn()
	return e
}

func (e *TemplateEngine) registerBuiltIn() {
	builtIn := []Template{
		{
			ID:      "verification-email",
			Name:    "Vérification de l'adresse email",
			Subject: "Vérifiez votre adresse email",
			Body: `<p>Bonjour {{first_name}},</p>
<p>Merci de votre inscription. Cliquez sur le lien suivant pour vérifier votre adresse email :</p>
<p><a href="{{verification_link}}">Vérifier mon adresse</a></p>`,
		},
		{
			ID:      "appointment-confirmation",
			Name:    "Confirmation de rendez-vous",
			Subject: "Votre rendez-vous du {{date}} est confirmé",
			Body: `<p>Bonjour {{first_name}},</p>
<p>Votre rendez-vous du <strong>{{date}}</strong> avec {{doctor_name}} ({{doctor_specialty}}) a été confirmé.</p>
<p>Vous pouvez consulter les détails depuis votre espace personnel : <a href="{{site_url}}">{{site_url}}</a></p>`,
		},
		{
			ID:      "doctor-approved",
			Name:    "Compte praticien approuvé",
			Subject: "Votre compte praticien a été approuvé",
			Body: `<p>Bonjour {{first_name}},</p>
<p>Votre compte praticien a été vérifié et approuvé. Vous pouvez dès maintenant vous connecter et publier du contenu.</p>`,
		},
		{
			ID:      "doctor-rejected",
			Name:    "Compte praticien refusé",
			Subject: "Votre demande de compte praticien",
			Body: `<p>Bonjour {{first_name}},</p>
<p>Après examen de votre dossier, nous ne pouvons pas valider votre compte praticien.</p>
<p>Motif : {{reason}}</p>`,
		},
	}
	for i := range builtIn {
		t := builtIn[i]
		e.templates[t.ID] = &t
	}
}

// RegisterTemplate adds or replaces a template in the engine.
func (e *TemplateEngine) RegisterTemplate(t Template) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.templates[t.ID] = &t
}

// Render looks up a template by ID and performs {{key}} replacement using the
// supplied data map. Keys present in the template but absent from data are left
// as-is.
func (e *TemplateEngine) Render(templateID string, data map[string]string) (subject, body string, err error) {
	e.mu.RLock()
	t, ok := e.templates[templateID]
	e.mu.RUnlock()
	if !ok {
		return "", "", fmt.Errorf("template %q not found", templateID)
	}

	subject = t.Subject
	body = t.Body
	for k, v := range data {
		placeholder := "{{" + k + "}}"
		subject = strings.ReplaceAll(subject, placeholder, v)
		body = strings.ReplaceAll(body, placeholder, v)
	}
	return subject, body, nil
}

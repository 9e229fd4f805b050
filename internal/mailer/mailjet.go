package mailer

import (
	"context"
	"errors"
	"fmt"

	mailjet "github.com/mailjet/mailjet-apiv3-go"

	"github.com/MarkoPoloResearchLab/rental/pkg/rental"
)

// Config carries the Mailjet credentials and sender identity.
// TemplateIDs maps template names to Mailjet template identifiers;
// messages naming an unmapped template fall back to a plain text body.
type Config struct {
	APIKeyPublic  string
	APIKeyPrivate string
	SenderEmail   string
	SenderName    string
	TemplateIDs   map[string]int64
}

// Validate rejects unusable configuration.
func (cfg *Config) Validate() error {
	if cfg.APIKeyPublic == "" || cfg.APIKeyPrivate == "" {
		return errors.New("mailjet credentials are empty")
	}
	if cfg.SenderEmail == "" {
		return errors.New("mailjet sender email is empty")
	}
	return nil
}

// Mailer sends transactional email through Mailjet. It implements
// rental.EmailSender.
type Mailer struct {
	cfg    Config
	client *mailjet.Client
}

// New returns a Mailer for the configured Mailjet account.
func New(cfg Config) (*Mailer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Mailer{
		cfg:    cfg,
		client: mailjet.NewMailjetClient(cfg.APIKeyPublic, cfg.APIKeyPrivate),
	}, nil
}

// Send delivers one message. Template variables travel as Mailjet
// template language variables when the template is mapped.
func (sender *Mailer) Send(ctx context.Context, message rental.EmailMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	info := mailjet.InfoMessagesV31{
		From: &mailjet.RecipientV31{
			Email: sender.cfg.SenderEmail,
			Name:  sender.cfg.SenderName,
		},
		To: &mailjet.RecipientsV31{
			{
				Email: message.RecipientEmail,
				Name:  message.RecipientName,
			},
		},
		Subject: message.Subject,
	}
	if templateID, ok := sender.cfg.TemplateIDs[message.TemplateName]; ok {
		info.TemplateID = templateID
		info.TemplateLanguage = true
		info.Variables = message.Variables
	} else {
		info.TextPart = plainTextBody(message)
	}

	messages := mailjet.MessagesV31{Info: []mailjet.InfoMessagesV31{info}}
	if _, err := sender.client.SendMailV31(&messages); err != nil {
		return fmt.Errorf("mailjet send: %w", err)
	}
	return nil
}

func plainTextBody(message rental.EmailMessage) string {
	body := message.Subject + "\n"
	for key, value := range message.Variables {
		body += fmt.Sprintf("%s: %v\n", key, value)
	}
	return body
}

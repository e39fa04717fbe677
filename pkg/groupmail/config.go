package groupmail

import "time"

// Config holds the group email channel settings.
type Config struct {
	// PersonalEmailWindow is the delay before a scheduled group email
	// fires, giving rapid follow-up posts a chance to supersede it.
	PersonalEmailWindow time.Duration `env:"GROUP_EMAIL_WINDOW" envDefault:"2m"`

	// Postmark credentials, unused with the dev sender.
	PostmarkServerToken  string `env:"POSTMARK_SERVER_TOKEN"`
	PostmarkAccountToken string `env:"POSTMARK_ACCOUNT_TOKEN"`
}

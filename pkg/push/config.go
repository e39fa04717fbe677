package push

import "time"

// Config carries the push channel settings shared by every outbound
// payload plus the batching window.
type Config struct {
	// SecretKey authenticates this site to the push servers.
	SecretKey string `env:"PUSH_SECRET_KEY,required"`

	// SiteURL, SiteTitle and SiteDescription identify the sending site in
	// the payload envelope.
	SiteURL         string `env:"PUSH_SITE_URL,required"`
	SiteTitle       string `env:"PUSH_SITE_TITLE" envDefault:"Forum"`
	SiteDescription string `env:"PUSH_SITE_DESCRIPTION" envDefault:""`

	// BatchWindow is how long dispatch waits to combine notifications
	// headed to the same push URL. Zero flushes synchronously.
	BatchWindow time.Duration `env:"PUSH_BATCH_WINDOW" envDefault:"2s"`

	// RequestTimeout bounds one delivery POST.
	RequestTimeout time.Duration `env:"PUSH_REQUEST_TIMEOUT" envDefault:"10s"`
}

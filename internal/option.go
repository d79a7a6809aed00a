package internal

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config *Config
	book   string
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithBook sets the book locator (URL or slug) to mirror.
func WithBook(locator string) Option {
	return func(a *application) {
		a.book = locator
	}
}

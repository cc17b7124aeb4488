package ports

import "context"

// Secret is a retrieved secret with version metadata
type Secret struct {
	Value     string
	Version   string
	Metadata  map[string]string
	CreatedAt string
}

// SecretProvider retrieves secrets from a secret management backend. This
// service only reads secrets (database credentials, the cron shared secret,
// the Redis password); rotation is operated outside the service.
type SecretProvider interface {
	GetSecret(ctx context.Context, path string) (*Secret, error)
}

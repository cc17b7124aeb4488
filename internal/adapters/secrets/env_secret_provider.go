package secrets

import (
	"context"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/poultryops/settlement-service/internal/domain/ports"
)

// envSecretProvider implements ports.SecretProvider on environment variables.
// WARNING: development only. Use AWS Secrets Manager in production.
type envSecretProvider struct {
	logger *zap.Logger
}

// NewEnvSecretProvider creates a SecretProvider that maps a secret path to an
// environment variable name: "settlement-service/db/password" becomes
// "SETTLEMENT_SERVICE_DB_PASSWORD".
func NewEnvSecretProvider(logger *zap.Logger) ports.SecretProvider {
	return &envSecretProvider{logger: logger}
}

func (p *envSecretProvider) GetSecret(_ context.Context, path string) (*ports.Secret, error) {
	name := pathToEnv(path)

	value, ok := os.LookupEnv(name)
	if !ok {
		return nil, fmt.Errorf("secret not found: %s (env %s)", path, name)
	}

	p.logger.Debug("Secret read from environment",
		zap.String("path", path),
		zap.String("env", name),
	)

	return &ports.Secret{
		Value:   value,
		Version: "v1",
	}, nil
}

func pathToEnv(path string) string {
	name := strings.NewReplacer("/", "_", "-", "_", ".", "_").Replace(path)
	return strings.ToUpper(name)
}

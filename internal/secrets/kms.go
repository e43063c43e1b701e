package secrets

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	"go.uber.org/zap"

	"login-guard/internal/config"
	"login-guard/internal/util"
)

// Prefix marks a config value as a base64 KMS ciphertext.
const Prefix = "kms:"

var ErrDecryptionFailed = errors.New("secret decryption failed")

// Decrypter is the part of the KMS client used here.
type Decrypter interface {
	Decrypt(ctx context.Context, params *kms.DecryptInput, optFns ...func(*kms.Options)) (*kms.DecryptOutput, error)
}

type Resolver struct {
	client Decrypter
	logger *zap.Logger
}

func NewResolver(client Decrypter, logger *zap.Logger) *Resolver {
	return &Resolver{client: client, logger: logger.Named("secrets")}
}

// NewKMSResolver builds a resolver on the default AWS credential chain.
func NewKMSResolver(ctx context.Context, cfg config.KMSConfig, logger *zap.Logger) (*Resolver, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return NewResolver(kms.NewFromConfig(awsCfg), logger), nil
}

// Reveal returns value unchanged unless it carries Prefix, in which case the
// ciphertext is decrypted.
func (r *Resolver) Reveal(ctx context.Context, value string) (string, error) {
	encoded, ok := strings.CutPrefix(value, Prefix)
	if !ok {
		return value, nil
	}

	blob, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("%w: bad base64: %v", ErrDecryptionFailed, err)
	}

	out, err := r.client.Decrypt(ctx, &kms.DecryptInput{CiphertextBlob: blob})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
	}
	r.logger.Debug("KMS decrypt", util.String("key_id", aws.ToString(out.KeyId)))
	return string(out.Plaintext), nil
}

// RevealConfig decrypts every credential field of cfg in place.
func (r *Resolver) RevealConfig(ctx context.Context, cfg *config.Config) error {
	fields := map[string]*string{
		"CLICKHOUSE_PASSWORD":    &cfg.Clickhouse.Password,
		"REDIS_PASSWORD":         &cfg.Redis.Password,
		"SCYLLA_PASSWORD":        &cfg.Scylla.Password,
		"ELASTICSEARCH_PASSWORD": &cfg.Elasticsearch.Password,
		"SMTP_PASSWORD":          &cfg.SMTP.Password,
	}

	var errs []error
	for name, field := range fields {
		if !strings.HasPrefix(*field, Prefix) {
			continue
		}
		plain, err := r.Reveal(ctx, *field)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			continue
		}
		*field = plain
	}
	return errors.Join(errs...)
}

package secrets

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	"go.uber.org/zap/zaptest"

	"login-guard/internal/config"
)

// fakeKMS "decrypts" by reversing the ciphertext bytes.
type fakeKMS struct {
	calls int
	err   error
}

func (f *fakeKMS) Decrypt(_ context.Context, in *kms.DecryptInput, _ ...func(*kms.Options)) (*kms.DecryptOutput, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make([]byte, len(in.CiphertextBlob))
	for i, b := range in.CiphertextBlob {
		out[len(out)-1-i] = b
	}
	return &kms.DecryptOutput{Plaintext: out, KeyId: aws.String("alias/login-guard")}, nil
}

func sealed(plain string) string {
	b := []byte(plain)
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
	return Prefix + base64.StdEncoding.EncodeToString(b)
}

func TestReveal(t *testing.T) {
	tests := []struct {
		name      string
		value     string
		want      string
		wantCalls int
		wantErr   bool
	}{
		{"plain value untouched", "hunter2", "hunter2", 0, false},
		{"empty value untouched", "", "", 0, false},
		{"ciphertext decrypted", sealed("s3cret"), "s3cret", 1, false},
		{"bad base64", Prefix + "!!!", "", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &fakeKMS{}
			r := NewResolver(client, zaptest.NewLogger(t))

			got, err := r.Reveal(context.Background(), tt.value)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Reveal() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && !errors.Is(err, ErrDecryptionFailed) {
				t.Errorf("error %v does not wrap ErrDecryptionFailed", err)
			}
			if got != tt.want {
				t.Errorf("Reveal() = %q, want %q", got, tt.want)
			}
			if client.calls != tt.wantCalls {
				t.Errorf("KMS calls = %d, want %d", client.calls, tt.wantCalls)
			}
		})
	}
}

func TestRevealConfig(t *testing.T) {
	cfg := &config.Config{}
	cfg.Clickhouse.Password = sealed("ch-pass")
	cfg.SMTP.Password = "plain-smtp"

	r := NewResolver(&fakeKMS{}, zaptest.NewLogger(t))
	if err := r.RevealConfig(context.Background(), cfg); err != nil {
		t.Fatalf("RevealConfig() error = %v", err)
	}
	if cfg.Clickhouse.Password != "ch-pass" {
		t.Errorf("Clickhouse.Password = %q, want ch-pass", cfg.Clickhouse.Password)
	}
	if cfg.SMTP.Password != "plain-smtp" {
		t.Errorf("SMTP.Password = %q, want plain-smtp", cfg.SMTP.Password)
	}
}

func TestRevealConfigNamesFailingSetting(t *testing.T) {
	cfg := &config.Config{}
	cfg.Redis.Password = sealed("x")

	r := NewResolver(&fakeKMS{err: errors.New("AccessDeniedException")}, zaptest.NewLogger(t))
	err := r.RevealConfig(context.Background(), cfg)
	if err == nil {
		t.Fatal("RevealConfig() expected error")
	}
	if !strings.Contains(err.Error(), "REDIS_PASSWORD") {
		t.Errorf("error %v does not name the setting", err)
	}
}

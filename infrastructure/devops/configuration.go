package devops

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

// Config is the immutable runtime configuration of the ingestion
// service. It is loaded once at startup and passed down explicitly;
// nothing reads policy flags from ambient globals after that.
type Config struct {
	ListenAddr           string `yaml:"listenAddr"`
	DSN                  string `yaml:"dsn"`
	TrustProxies         bool   `yaml:"trustProxies"`
	DefaultTimezone      string `yaml:"defaultTimezone"`
	RejectUnknownSerials bool   `yaml:"rejectUnknownSerials"`
	MaxBodyKiB           int    `yaml:"maxBodyKiB"`
	DefaultTenantId      uint   `yaml:"defaultTenantId"`
	EvidenceBucket       string `yaml:"evidenceBucket"`
	JWTSecret            []byte `yaml:"-"`
}

// fileConfig is the optional YAML overlay kept in SSM Parameter Store.
// Pointer fields so an absent key leaves the env/default value alone.
type fileConfig struct {
	ListenAddr           *string `yaml:"listenAddr"`
	DSN                  *string `yaml:"dsn"`
	TrustProxies         *bool   `yaml:"trustProxies"`
	DefaultTimezone      *string `yaml:"defaultTimezone"`
	RejectUnknownSerials *bool   `yaml:"rejectUnknownSerials"`
	MaxBodyKiB           *int    `yaml:"maxBodyKiB"`
	DefaultTenantId      *uint   `yaml:"defaultTenantId"`
	EvidenceBucket       *string `yaml:"evidenceBucket"`
}

// Load builds the Config from environment variables, then overlays the
// YAML document in the SSM parameter named by ROLLCALL_CONFIG_PARAM
// when that is set.
func Load(ctx context.Context) (Config, error) {
	cfg := Config{
		ListenAddr:           ":8090",
		DefaultTimezone:      "Australia/Brisbane",
		RejectUnknownSerials: true,
		MaxBodyKiB:           256,
		DefaultTenantId:      1,
	}

	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
	cfg.DSN = os.Getenv("DSN")
	cfg.TrustProxies = envBool("TRUST_PROXIES", cfg.TrustProxies)
	if v := os.Getenv("DEFAULT_TIMEZONE"); v != "" {
		cfg.DefaultTimezone = v
	}
	cfg.RejectUnknownSerials = envBool("REJECT_UNKNOWN_SERIALS", cfg.RejectUnknownSerials)
	cfg.MaxBodyKiB = envInt("MAX_BODY_KIB", cfg.MaxBodyKiB)
	cfg.DefaultTenantId = uint(envInt("DEFAULT_TENANT_ID", int(cfg.DefaultTenantId)))
	cfg.EvidenceBucket = os.Getenv("EVIDENCE_BUCKET")

	if b64 := os.Getenv("ROLLCALL_SIGNING_SECRET"); b64 != "" {
		secret, err := base64.StdEncoding.DecodeString(b64)
		if err != nil {
			return cfg, fmt.Errorf("decode signing secret: %w", err)
		}
		cfg.JWTSecret = secret
	}

	if param := os.Getenv("ROLLCALL_CONFIG_PARAM"); param != "" {
		if err := overlayFromSSM(ctx, param, &cfg); err != nil {
			return cfg, err
		}
	}

	return cfg, nil
}

func overlayFromSSM(ctx context.Context, paramName string, cfg *Config) error {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return fmt.Errorf("load aws config: %w", err)
	}

	client := ssm.NewFromConfig(awsCfg)

	out, err := client.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(paramName),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return fmt.Errorf("get parameter %s: %w", paramName, err)
	}

	var overlay fileConfig
	if err := yaml.Unmarshal([]byte(*out.Parameter.Value), &overlay); err != nil {
		return fmt.Errorf("unmarshal yaml: %w", err)
	}

	apply(&overlay, cfg)
	return nil
}

func apply(overlay *fileConfig, cfg *Config) {
	if overlay.ListenAddr != nil {
		cfg.ListenAddr = *overlay.ListenAddr
	}
	if overlay.DSN != nil {
		cfg.DSN = *overlay.DSN
	}
	if overlay.TrustProxies != nil {
		cfg.TrustProxies = *overlay.TrustProxies
	}
	if overlay.DefaultTimezone != nil {
		cfg.DefaultTimezone = *overlay.DefaultTimezone
	}
	if overlay.RejectUnknownSerials != nil {
		cfg.RejectUnknownSerials = *overlay.RejectUnknownSerials
	}
	if overlay.MaxBodyKiB != nil {
		cfg.MaxBodyKiB = *overlay.MaxBodyKiB
	}
	if overlay.DefaultTenantId != nil {
		cfg.DefaultTenantId = *overlay.DefaultTenantId
	}
	if overlay.EvidenceBucket != nil {
		cfg.EvidenceBucket = *overlay.EvidenceBucket
	}
}

func envBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return parsed
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return parsed
}

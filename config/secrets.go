package config

import (
	"context"
	"errors"
	"fmt"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

// ParameterStore reads secrets by name.
type ParameterStore interface {
	GetParameter(ctx context.Context, name string, decrypt bool) (string, error)
}

// SSMParameterStore reads parameters from AWS Systems Manager Parameter Store.
type SSMParameterStore struct {
	client *ssm.Client
}

// NewSSMParameterStore builds an SSM client from the default AWS credential chain.
func NewSSMParameterStore(ctx context.Context) (*SSMParameterStore, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &SSMParameterStore{client: ssm.NewFromConfig(cfg)}, nil
}

func (s *SSMParameterStore) GetParameter(ctx context.Context, name string, decrypt bool) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	result, err := s.client.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           &name,
		WithDecryption: &decrypt,
	})
	if err != nil {
		return "", fmt.Errorf("get parameter %s: %w", name, err)
	}

	if result.Parameter == nil || result.Parameter.Value == nil {
		return "", fmt.Errorf("parameter %s has no value", name)
	}
	return *result.Parameter.Value, nil
}

// ResolveSecrets fills cfg from the parameter store. The API token is only
// looked up when it was not provided. Postgres host, user and password always
// come from the store when their parameter names are set and the postgres
// history sink is selected.
func ResolveSecrets(ctx context.Context, cfg *Config, store ParameterStore) error {
	var errs []error

	resolve := func(dst *string, name string) {
		if *dst != "" || name == "" {
			return
		}
		v, err := store.GetParameter(ctx, name, true)
		if err != nil {
			errs = append(errs, err)
			return
		}
		*dst = v
	}

	resolve(&cfg.Travelpayouts.Token, cfg.Travelpayouts.TokenParameter)

	if cfg.History.Driver == "postgres" {
		pg := &cfg.Postgres
		for _, p := range []struct {
			dst  *string
			name string
		}{
			{&pg.Host, pg.HostParameter},
			{&pg.User, pg.UserParameter},
			{&pg.Password, pg.PasswordParameter},
		} {
			if p.name != "" {
				*p.dst = ""
			}
			resolve(p.dst, p.name)
		}
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("resolve secrets: %w", err)
	}
	return nil
}

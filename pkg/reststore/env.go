package reststore

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/Ratio1/reststore_go/internal/devseed"
	"github.com/Ratio1/reststore_go/pkg/record"
	"github.com/Ratio1/reststore_go/pkg/reststore/mock"
)

const (
	EnvMode     = "RESTSTORE_MODE"
	EnvURL      = "RESTSTORE_URL"
	EnvMockSeed = "RESTSTORE_MOCK_SEED"
	EnvResource = "RESTSTORE_RESOURCE"

	ModeAuto = "auto"
	ModeHTTP = "http"
	ModeMock = "mock"

	mockHost = "http://reststore.mock"
)

// NewFromEnv builds a Store from RESTSTORE_* environment variables and
// returns the resolved mode ("http" or "mock"). In auto mode a configured
// RESTSTORE_URL selects HTTP, otherwise an in-memory mock resource is used.
// opts are applied after the environment-derived ones.
func NewFromEnv(model record.Model, opts ...Option) (store *Store, mode string, err error) {
	mode = strings.ToLower(strings.TrimSpace(os.Getenv(EnvMode)))
	baseURL := strings.TrimSpace(os.Getenv(EnvURL))

	switch mode {
	case "", ModeAuto:
		if baseURL != "" {
			return newHTTPStore(model, baseURL, opts)
		}
		return newMockStore(model, opts)
	case ModeHTTP:
		if baseURL == "" {
			return nil, "", fmt.Errorf("reststore: HTTP mode requires %s", EnvURL)
		}
		return newHTTPStore(model, baseURL, opts)
	case ModeMock:
		return newMockStore(model, opts)
	default:
		return nil, "", fmt.Errorf("reststore: unsupported %s value %q", EnvMode, mode)
	}
}

func newHTTPStore(model record.Model, baseURL string, opts []Option) (*Store, string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, "", fmt.Errorf("reststore: invalid %s: %w", EnvURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, "", fmt.Errorf("reststore: invalid %s %q: scheme and host are required", EnvURL, baseURL)
	}
	all := append([]Option{WithURL(baseURL)}, opts...)
	return New(model, all...), ModeHTTP, nil
}

func newMockStore(model record.Model, opts []Option) (*Store, string, error) {
	if model == nil {
		model = record.NewSchema(record.DefaultPrimaryKey)
	}
	res := mock.New(
		mock.WithPrimaryKey(model.PrimaryKey()),
		mock.WithResource(os.Getenv(EnvResource)),
	)
	if path := strings.TrimSpace(os.Getenv(EnvMockSeed)); path != "" {
		records, err := devseed.LoadRecords(path)
		if err != nil {
			return nil, "", fmt.Errorf("reststore: load mock seed: %w", err)
		}
		if err := res.Seed(records); err != nil {
			return nil, "", fmt.Errorf("reststore: apply mock seed: %w", err)
		}
	}
	all := append([]Option{
		WithURL(mockHost + res.Path()),
		WithTransport(res.Transport()),
	}, opts...)
	return New(model, all...), ModeMock, nil
}

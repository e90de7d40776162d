package api

import (
	"crypto/subtle"
	"errors"
	"strings"

	"shareit/internal/config"
)

const (
	apiKeyHeaderDefault   = "x-api-key"
	apiExtraHeaderDefault = "x-api-extra"
	clientKeyUnknown      = "unknown"

	permReadPrefix       = "read:"
	permWritePrefix      = "write:"
	permReadHealth       = "read:health"
	permReadReflection   = "read:reflection"
	permReadAvailability = "read:availability"
)

var (
	errMissingCredentials = errors.New("missing api key headers")
	errInvalidAPIKey      = errors.New("invalid api key")
	errInvalidExtra       = errors.New("invalid extra header")
	errPermissionDenied   = errors.New("permission denied")
	errRateLimited        = errors.New("rate limit exceeded")
)

// keyring holds the configured API clients. Both transports authenticate through it,
// so a key behaves the same over HTTP and gRPC.
type keyring struct {
	clients      map[string]config.APIClientKey
	apiKeyHeader string
	extraHeader  string
}

func newKeyring(cfg config.APIAuthConfig) *keyring {
	clients := make(map[string]config.APIClientKey, len(cfg.APIKeys))
	for _, k := range cfg.APIKeys {
		clients[k.Key] = k
	}
	return &keyring{
		clients:      clients,
		apiKeyHeader: headerOrDefault(cfg.HeaderAPIKey, apiKeyHeaderDefault),
		extraHeader:  headerOrDefault(cfg.HeaderExtra, apiExtraHeaderDefault),
	}
}

// gRPC metadata keys are lower case; HTTP headers are canonicalized by net/http.
func headerOrDefault(h, def string) string {
	if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
		return h
	}
	return def
}

// authenticate resolves the client and checks it holds the required permission.
// An empty required permission means the call needs none.
func (k *keyring) authenticate(apiKey, extra, required string) (config.APIClientKey, error) {
	apiKey = strings.TrimSpace(apiKey)
	extra = strings.TrimSpace(extra)
	if apiKey == "" || extra == "" {
		return config.APIClientKey{}, errMissingCredentials
	}

	client, ok := k.clients[apiKey]
	if !ok {
		return config.APIClientKey{}, errInvalidAPIKey
	}
	if subtle.ConstantTimeCompare([]byte(client.Extra), []byte(extra)) != 1 {
		return config.APIClientKey{}, errInvalidExtra
	}

	return client, checkPermissions(client, required)
}

// checkPermissions allows everything when the client has no explicit permission list.
func checkPermissions(client config.APIClientKey, required string) error {
	if required == "" || len(client.Permissions) == 0 {
		return nil
	}
	for _, p := range client.Permissions {
		if strings.TrimSpace(p) == required {
			return nil
		}
	}
	return errPermissionDenied
}

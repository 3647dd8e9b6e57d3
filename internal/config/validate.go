package config

import (
	"errors"
	"fmt"
	"net"
)

// Validate checks the structural validity of a Config. It accumulates all
// problems and reports them joined, so a broken config surfaces every issue
// in one run.
func Validate(cfg *Config) error {
	var errs []error

	if _, err := net.ResolveTCPAddr("tcp", cfg.Server.Bind); err != nil {
		errs = append(errs, fmt.Errorf("config: server.bind %q is not a valid address", cfg.Server.Bind))
	}

	if cfg.Store.APIKey == "" {
		errs = append(errs, errors.New("config: store.api_key is required"))
	}
	if cfg.Store.Collection == "" {
		errs = append(errs, errors.New("config: store.collection is required"))
	}

	// Trakt credentials are all-or-nothing: a half-configured tracking
	// service is a misconfiguration, not a degraded mode.
	if (cfg.Trakt.ClientID == "") != (cfg.Trakt.AccessToken == "") {
		errs = append(errs, errors.New("config: trakt.client_id and trakt.access_token must be set together"))
	}

	if cfg.Sync.Schedule != "" && !cfg.Trakt.IsConfigured() {
		errs = append(errs, errors.New("config: sync.schedule requires trakt credentials"))
	}

	return errors.Join(errs...)
}

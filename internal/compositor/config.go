// SPDX-FileCopyrightText: 2026 SAP SE or an SAP affiliate company
// SPDX-License-Identifier: Apache-2.0

package compositor

import (
	"errors"
	"os"
	"strconv"

	. "github.com/majewsky/gg/option"
	"github.com/sapcc/go-bits/errext"
	"github.com/sapcc/go-bits/logg"
)

// Default values for optional configuration variables.
const (
	DefaultAPIListenAddress    = ":3000"
	DefaultComposer            = "federation"
	DefaultMaxRequestBodyBytes = 10 << 20
)

// Configuration contains all configuration values that are read from the
// environment at startup.
type Configuration struct {
	// Secret is the HMAC key shared with the schema registry. It must never
	// be logged.
	Secret                    []byte
	APIListenAddress          string
	ComposerPluginID          string
	MaxRequestBodyBytes       int64
	MaxConcurrentCompositions Option[uint64]
}

// ParseConfiguration obtains a compositor.Configuration instance from the
// corresponding environment variables. Aborts on error.
func ParseConfiguration() Configuration {
	logg.Debug("parsing configuration...")
	cfg, err := ParseConfigurationFrom(os.Getenv)
	if err != nil {
		logg.Fatal(err.Error())
	}
	return cfg
}

// ParseConfigurationFrom is like ParseConfiguration, but reads variables
// through the given function and reports all problems at once instead of
// aborting.
func ParseConfigurationFrom(getenv func(string) string) (Configuration, error) {
	var errs errext.ErrorSet
	getenvOrDefault := func(key, defaultValue string) string {
		val := getenv(key)
		if val == "" {
			return defaultValue
		}
		return val
	}

	cfg := Configuration{
		Secret:              []byte(getenv("COMPOSITOR_SECRET")),
		APIListenAddress:    getenvOrDefault("COMPOSITOR_API_LISTEN_ADDRESS", DefaultAPIListenAddress),
		ComposerPluginID:    getenvOrDefault("COMPOSITOR_COMPOSER", DefaultComposer),
		MaxRequestBodyBytes: DefaultMaxRequestBodyBytes,
	}
	if len(cfg.Secret) == 0 {
		errs.Add(errors.New("missing required environment variable: COMPOSITOR_SECRET"))
	}

	if val := getenv("COMPOSITOR_MAX_REQUEST_BODY_BYTES"); val != "" {
		limit, err := strconv.ParseInt(val, 10, 64)
		if err == nil && limit <= 0 {
			err = errors.New("must be positive")
		}
		if err != nil {
			errs.Addf("invalid value for COMPOSITOR_MAX_REQUEST_BODY_BYTES: %s", err.Error())
		} else {
			cfg.MaxRequestBodyBytes = limit
		}
	}

	if val := getenv("COMPOSITOR_MAX_CONCURRENT_COMPOSITIONS"); val != "" {
		limit, err := strconv.ParseUint(val, 10, 64)
		if err == nil && limit == 0 {
			err = errors.New("must be positive")
		}
		if err != nil {
			errs.Addf("invalid value for COMPOSITOR_MAX_CONCURRENT_COMPOSITIONS: %s", err.Error())
		} else {
			cfg.MaxConcurrentCompositions = Some(limit)
		}
	}

	if !errs.IsEmpty() {
		return Configuration{}, errors.New(errs.Join("; "))
	}
	return cfg, nil
}

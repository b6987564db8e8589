package config

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Validate checks struct constraints and the cross-field rules the tags
// cannot express. Field errors are reported as "Namespace: failed 'tag'"
// lines joined together.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}

	if err := getValidator().Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			if fe.Param() != "" {
				msgs = append(msgs, fmt.Sprintf("%s: failed '%s=%s' (value %v)", fe.Namespace(), fe.Tag(), fe.Param(), fe.Value()))
			} else {
				msgs = append(msgs, fmt.Sprintf("%s: failed '%s'", fe.Namespace(), fe.Tag()))
			}
		}
		return errors.New(strings.Join(msgs, "; "))
	}

	if cfg.Metrics.Enabled && cfg.Metrics.Port == cfg.Admin.Port {
		return fmt.Errorf("metrics.port and admin.port must differ (both %d)", cfg.Admin.Port)
	}
	if cfg.DrainPollInterval > cfg.ShutdownTimeout {
		return fmt.Errorf("drain_poll_interval (%s) must not exceed shutdown_timeout (%s)",
			cfg.DrainPollInterval, cfg.ShutdownTimeout)
	}
	return nil
}

package config

import (
	"net"
	"strconv"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		// registration only fails for an empty tag or nil function
		_ = validate.RegisterValidation("listen_addr", isListenAddr)
	})

	return validate
}

// isListenAddr accepts host:port with an optional host and a port in
// 0..65535; port 0 picks a free port.
func isListenAddr(fl validator.FieldLevel) bool {
	_, port, err := net.SplitHostPort(fl.Field().String())
	if err != nil {
		return false
	}

	n, err := strconv.Atoi(port)
	return err == nil && n >= 0 && n <= 65535
}

// Validate checks cfg against its validation tags.
//
// Parameters:
//   - cfg: The configuration to check
//
// Returns:
//   - nil, or a validator.ValidationErrors describing every failed field
func Validate(cfg *Config) error {
	return validatorInstance().Struct(cfg)
}

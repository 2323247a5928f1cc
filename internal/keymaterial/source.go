package keymaterial

import (
	"errors"
	"fmt"
	"os"

	"github.com/zalando/go-keyring"
)

// Source looks up named configuration values.
type Source interface {
	// Lookup returns the value stored under name. ok is false if the value is
	// absent. A set but empty value is returned with ok true.
	Lookup(name string) (value string, ok bool, err error)

	// String names the source in error messages.
	String() string
}

// EnvSource reads values from the process environment on every lookup,
// so changes to the environment take effect without a restart.
type EnvSource struct {
	lookupEnv func(string) (string, bool)
}

// Compile-time check to ensure EnvSource implements Source
var _ Source = (*EnvSource)(nil)

// NewEnvSource creates an EnvSource backed by os.LookupEnv.
func NewEnvSource() *EnvSource {
	return &EnvSource{lookupEnv: os.LookupEnv}
}

// Lookup returns the environment variable called name.
func (e *EnvSource) Lookup(name string) (string, bool, error) {
	value, ok := e.lookupEnv(name)
	return value, ok, nil
}

func (e *EnvSource) String() string {
	return "environment"
}

// KeyringSource reads values from the OS keyring.
// Each value is stored under the source's service with the value name as user.
type KeyringSource struct {
	service string
}

// Compile-time check to ensure KeyringSource implements Source
var _ Source = (*KeyringSource)(nil)

// NewKeyringSource creates a KeyringSource for the given service identifier.
func NewKeyringSource(service string) (*KeyringSource, error) {
	if service == "" {
		return nil, fmt.Errorf("service cannot be empty")
	}

	return &KeyringSource{
		service: service,
	}, nil
}

// Lookup returns the value from the system keyring. A missing entry is
// reported as absent rather than as an error.
func (k *KeyringSource) Lookup(name string) (string, bool, error) {
	value, err := keyring.Get(k.service, name)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// Set stores value under name, overwriting any existing entry.
func (k *KeyringSource) Set(name, value string) error {
	return keyring.Set(k.service, name, value)
}

// Delete removes the entry for name. Deleting a missing entry is not an error.
func (k *KeyringSource) Delete(name string) error {
	err := keyring.Delete(k.service, name)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return err
}

func (k *KeyringSource) String() string {
	return fmt.Sprintf("keyring service %s", k.service)
}

// StaticSource serves values fixed at construction, typically taken from a
// loaded configuration file. Empty strings are treated as absent.
type StaticSource struct {
	values map[string]string
}

// Compile-time check to ensure StaticSource implements Source
var _ Source = (*StaticSource)(nil)

// NewStaticSource creates a StaticSource from name/value pairs.
func NewStaticSource(values map[string]string) *StaticSource {
	s := &StaticSource{values: make(map[string]string, len(values))}
	for name, value := range values {
		if value != "" {
			s.values[name] = value
		}
	}
	return s
}

// Lookup returns the configured value for name.
func (s *StaticSource) Lookup(name string) (string, bool, error) {
	value, ok := s.values[name]
	return value, ok, nil
}

func (s *StaticSource) String() string {
	return "configuration"
}

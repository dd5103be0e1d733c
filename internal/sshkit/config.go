package sshkit

import "time"

// Config holds SSH connection configuration for the deployment target.
type Config struct {
	// Host is the target SSH server hostname or IP address.
	Host string

	// Port is the SSH port (default 22).
	Port int

	// User is the SSH username.
	User string

	// Password is the SSH password. This is the primary authentication
	// method for deployments.
	Password string

	// PrivateKey is the SSH private key content (PEM encoded).
	// Mutually exclusive with KeyPath.
	PrivateKey string

	// KeyPath is the path to an SSH private key file.
	// Mutually exclusive with PrivateKey.
	KeyPath string

	// Timeout is the connection timeout (default 30s). It covers the
	// connect phase only; established sessions carry no deadline.
	Timeout time.Duration

	// KnownHostsFile is the path to a known_hosts file for host key
	// verification. If not set, defaults to ~/.ssh/known_hosts if it exists.
	KnownHostsFile string

	// InsecureIgnoreHostKey skips host key verification.
	// WARNING: This is insecure and should only be used for testing.
	InsecureIgnoreHostKey bool
}

// WithDefaults returns a copy of the config with default values applied.
func (c Config) WithDefaults() Config {
	if c.Port == 0 {
		c.Port = 22
	}
	if c.Timeout == 0 {
		c.Timeout = 30 * time.Second
	}
	return c
}

// Package config builds the deployment options value object. Options are
// constructed once at startup from environment variables and command-line
// flags and passed explicitly to every component; there is no global
// mutable state.
package config

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// ErrMissingPassword indicates that no credential was supplied by argument,
// environment variable, or prompt. It is a configuration error: no
// connection attempt is made.
var ErrMissingPassword = errors.New("password required: pass as argument or set SSH_PASSWORD")

// Options holds everything a deployment run needs. Defaults mirror the
// fixed server configuration the tool was built around; each can be
// overridden by environment variable or flag.
type Options struct {
	// Host is the deployment target address.
	Host string `env:"DEPLOY_HOST,default=10.70.23.152"`

	// Port is the SSH port on the target.
	Port int `env:"DEPLOY_PORT,default=22"`

	// User is the SSH username.
	User string `env:"DEPLOY_USER,default=missola"`

	// Password is the SSH password. See ResolvePassword for the
	// resolution order.
	Password string `env:"SSH_PASSWORD"`

	// RemotePath is the deployment base directory on the target.
	RemotePath string `env:"DEPLOY_REMOTE_PATH,default=/home/missola/gt7-saas"`

	// LocalPath is the project root to upload.
	LocalPath string `env:"DEPLOY_LOCAL_PATH,default=."`

	// ComposeFile is the compose file name, relative to RemotePath.
	ComposeFile string `env:"DEPLOY_COMPOSE_FILE,default=docker-compose.prod.yml"`

	// AppPort is the published application port used in the summary URL.
	AppPort int `env:"DEPLOY_APP_PORT,default=3000"`

	// Timeout is the SSH connect timeout.
	Timeout time.Duration `env:"DEPLOY_TIMEOUT,default=30s"`

	// KnownHostsFile overrides the known_hosts file used for host key
	// verification.
	KnownHostsFile string `env:"DEPLOY_KNOWN_HOSTS"`

	// Insecure disables host key verification.
	Insecure bool `env:"DEPLOY_INSECURE"`

	// Excludes is the upload exclusion rule list. Set from flags; the
	// default set lives in the deploy package.
	Excludes []string

	// AskPass enables an interactive password prompt when no credential
	// was supplied otherwise.
	AskPass bool
}

// Load resolves options from the environment through the given lookuper,
// applying defaults for anything unset.
func Load(ctx context.Context, lookuper envconfig.Lookuper) (Options, error) {
	var opts Options
	if err := envconfig.ProcessWith(ctx, &opts, lookuper); err != nil {
		return Options{}, fmt.Errorf("failed to read environment configuration: %w", err)
	}
	return opts, nil
}

// PasswordPrompter reads a password interactively.
type PasswordPrompter func() (string, error)

// ResolvePassword fills in the credential: the first positional argument
// wins, then the SSH_PASSWORD environment variable (already applied by
// Load), then the interactive prompt when AskPass is set. If none yields a
// password, ErrMissingPassword is returned and no connection is attempted.
func (o *Options) ResolvePassword(args []string, prompt PasswordPrompter) error {
	if len(args) > 0 && args[0] != "" {
		o.Password = args[0]
		return nil
	}
	if o.Password != "" {
		return nil
	}
	if o.AskPass && prompt != nil {
		password, err := prompt()
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
		if password != "" {
			o.Password = password
			return nil
		}
	}
	return ErrMissingPassword
}

package sshkit

import (
	"context"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// ClientInterface defines the remote operations a deployment needs.
// This allows for mocking in tests.
type ClientInterface interface {
	// Close closes the SFTP channel and the SSH connection.
	Close() error
	// UploadFile copies one local file to one remote path.
	UploadFile(ctx context.Context, localPath, remotePath string) error
	// DirExists reports whether a remote path exists.
	DirExists(ctx context.Context, remotePath string) (bool, error)
	// Mkdir creates a single remote directory. The parent must exist.
	Mkdir(ctx context.Context, remotePath string) error
	// RunCommand executes a shell command on the remote host.
	RunCommand(ctx context.Context, command string) (CommandResult, error)
}

// Client wraps SSH and SFTP connections for deployment operations.
type Client struct {
	sshClient  *ssh.Client
	sftpClient SFTPClientInterface
}

// Ensure Client implements ClientInterface.
var _ ClientInterface = (*Client)(nil)

// SFTPClientInterface abstracts SFTP operations for testing.
type SFTPClientInterface interface {
	Stat(path string) (os.FileInfo, error)
	Mkdir(path string) error
	Create(path string) (SFTPFile, error)
	Close() error
}

// SFTPFile abstracts file operations for testing.
type SFTPFile interface {
	io.Reader
	io.Writer
	io.Closer
}

// SFTPClientWrapper wraps the real sftp.Client to implement SFTPClientInterface.
type SFTPClientWrapper struct {
	client *sftp.Client
}

var _ SFTPClientInterface = (*SFTPClientWrapper)(nil)

func (w *SFTPClientWrapper) Stat(path string) (os.FileInfo, error) { return w.client.Stat(path) }
func (w *SFTPClientWrapper) Mkdir(path string) error               { return w.client.Mkdir(path) }
func (w *SFTPClientWrapper) Create(path string) (SFTPFile, error)  { return w.client.Create(path) }
func (w *SFTPClientWrapper) Close() error                          { return w.client.Close() }

// NewClient opens an authenticated SSH connection to the configured host
// and derives an SFTP channel over it.
func NewClient(config Config) (*Client, error) {
	config = config.WithDefaults()

	authMethods, err := buildAuthMethods(config)
	if err != nil {
		return nil, err
	}

	hostKeyCallback, err := buildHostKeyCallback(config)
	if err != nil {
		return nil, fmt.Errorf("failed to configure host key verification: %w", err)
	}

	sshConfig := &ssh.ClientConfig{
		User:            config.User,
		Auth:            authMethods,
		HostKeyCallback: hostKeyCallback,
		Timeout:         config.Timeout,
	}

	targetAddr := fmt.Sprintf("%s:%d", config.Host, config.Port)

	sshClient, err := ssh.Dial("tcp", targetAddr, sshConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", targetAddr, err)
	}

	rawSftpClient, err := sftp.NewClient(sshClient)
	if err != nil {
		sshClient.Close()
		return nil, fmt.Errorf("failed to create SFTP client: %w", err)
	}

	return &Client{
		sshClient:  sshClient,
		sftpClient: &SFTPClientWrapper{client: rawSftpClient},
	}, nil
}

// NewClientWithSFTP creates a Client with a custom SFTP client implementation.
// This is primarily used for testing with mock SFTP clients.
func NewClientWithSFTP(sftpClient SFTPClientInterface, sshClient *ssh.Client) *Client {
	return &Client{
		sshClient:  sshClient,
		sftpClient: sftpClient,
	}
}

// Close closes the SFTP channel and then the SSH connection.
func (c *Client) Close() error {
	if c.sftpClient != nil {
		c.sftpClient.Close()
	}
	if c.sshClient != nil {
		c.sshClient.Close()
	}
	return nil
}

// UploadFile copies a local file to the remote host. The remote parent
// directory must already exist; deployments create directories top-down
// before descending into them.
func (c *Client) UploadFile(ctx context.Context, localPath, remotePath string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("operation cancelled: %w", err)
	}

	localFile, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("failed to open local file: %w", err)
	}
	defer localFile.Close()

	remoteFile, err := c.sftpClient.Create(remotePath)
	if err != nil {
		return fmt.Errorf("failed to create remote file: %w", err)
	}
	defer remoteFile.Close()

	done := make(chan error, 1)
	go func() {
		_, err := io.Copy(remoteFile, localFile)
		if err != nil {
			done <- fmt.Errorf("failed to copy file content: %w", err)
			return
		}
		done <- nil
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("upload cancelled: %w", ctx.Err())
	case err := <-done:
		return err
	}
}

// DirExists reports whether a remote path exists. A missing path is a
// distinguished condition, not an error; any other stat fault propagates.
func (c *Client) DirExists(ctx context.Context, remotePath string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, fmt.Errorf("operation cancelled: %w", err)
	}

	_, err := c.sftpClient.Stat(remotePath)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat remote path %s: %w", remotePath, err)
	}
	return true, nil
}

// Mkdir creates a single remote directory. The parent must already exist.
func (c *Client) Mkdir(ctx context.Context, remotePath string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("operation cancelled: %w", err)
	}

	if err := c.sftpClient.Mkdir(remotePath); err != nil {
		return fmt.Errorf("failed to create remote directory %s: %w", remotePath, err)
	}
	return nil
}

// Helper functions

func buildHostKeyCallback(config Config) (ssh.HostKeyCallback, error) {
	if config.InsecureIgnoreHostKey {
		log.Printf("[WARN] SSH host key verification disabled for %s:%d - this is insecure!", config.Host, config.Port)
		return ssh.InsecureIgnoreHostKey(), nil
	}

	if config.KnownHostsFile != "" {
		expandedPath := ExpandPath(config.KnownHostsFile)
		callback, err := knownhosts.New(expandedPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load known_hosts file %s: %w", expandedPath, err)
		}
		return callback, nil
	}

	homeDir, err := os.UserHomeDir()
	if err == nil {
		defaultKnownHosts := filepath.Join(homeDir, ".ssh", "known_hosts")
		if _, err := os.Stat(defaultKnownHosts); err == nil {
			callback, err := knownhosts.New(defaultKnownHosts)
			if err == nil {
				return callback, nil
			}
			log.Printf("[WARN] Could not parse known_hosts file %s: %v", defaultKnownHosts, err)
		}
	}

	log.Printf("[WARN] No known_hosts file found for %s:%d - host key verification disabled.", config.Host, config.Port)
	return func(hostname string, remote net.Addr, key ssh.PublicKey) error {
		return nil
	}, nil
}

func buildAuthMethods(config Config) ([]ssh.AuthMethod, error) {
	var authMethods []ssh.AuthMethod

	if config.Password != "" {
		authMethods = append(authMethods, ssh.Password(config.Password))
	}

	if config.PrivateKey != "" || config.KeyPath != "" {
		keyAuth, err := buildPrivateKeyAuth(config)
		if err != nil {
			return nil, err
		}
		authMethods = append(authMethods, keyAuth)
	}

	if len(authMethods) == 0 {
		return nil, fmt.Errorf("no SSH authentication method configured")
	}

	return authMethods, nil
}

func buildPrivateKeyAuth(config Config) (ssh.AuthMethod, error) {
	var keyData []byte
	var err error

	if config.PrivateKey != "" {
		keyData = []byte(config.PrivateKey)
	} else {
		keyData, err = os.ReadFile(ExpandPath(config.KeyPath))
		if err != nil {
			return nil, fmt.Errorf("failed to read SSH key file: %w", err)
		}
	}

	signer, err := ssh.ParsePrivateKey(keyData)
	if err != nil {
		return nil, fmt.Errorf("failed to parse SSH private key: %w", err)
	}

	return ssh.PublicKeys(signer), nil
}

// IsAuthenticationError reports whether an error from NewClient indicates
// that the server rejected the supplied credentials, as opposed to a
// transport-level fault.
func IsAuthenticationError(err error) bool {
	if err == nil {
		return false
	}

	errMsg := strings.ToLower(err.Error())
	authMessages := []string{
		"unable to authenticate",
		"no supported methods remain",
		"permission denied",
	}

	for _, msg := range authMessages {
		if strings.Contains(errMsg, msg) {
			return true
		}
	}

	return false
}

// ShellQuote wraps a string in single quotes for safe use in a remote
// shell command line.
func ShellQuote(s string) string {
	if s == "" {
		return "''"
	}
	escaped := strings.ReplaceAll(s, "'", "'\"'\"'")
	return "'" + escaped + "'"
}

// ExpandPath expands ~ to home directory.
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(homeDir, path[2:])
		}
	}
	return path
}

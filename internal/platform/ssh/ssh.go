// Package ssh provides the secure-shell channel to the firewall appliance.
// It executes commands, uploads payloads, and wraps commands in a host-side
// advisory lock so concurrent provisioning runs never edit the appliance
// configuration at the same time.
//
// Security: host key verification is disabled by default, matching how the
// appliance's self-signed management endpoint is handled. Provide a
// HostKeyCallback for environments with persistent known hosts.
package ssh

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/crypto/ssh"
)

const (
	defaultPort        = 22
	defaultDialTimeout = 10 * time.Second
	defaultDialRetries = 3
	defaultRetryDelay  = 2 * time.Second
)

// Runner is the command-execution surface the provisioning pipeline needs.
type Runner interface {
	// Run executes a command and returns combined stdout+stderr.
	Run(ctx context.Context, command string) (string, error)

	// Output executes a command and returns stdout and stderr separately.
	Output(ctx context.Context, command string) (stdout, stderr string, err error)

	// Upload writes data to a remote path and marks it executable.
	Upload(ctx context.Context, data []byte, remotePath string) error
}

// Config holds client settings for one appliance.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string

	// DialTimeout bounds TCP connection establishment.
	DialTimeout time.Duration

	// HostKeyCallback handles host key verification. Nil means
	// ssh.InsecureIgnoreHostKey().
	HostKeyCallback ssh.HostKeyCallback
}

// Client implements Runner over password-authenticated SSH. Connections are
// created per call; the appliance closes idle sessions aggressively.
type Client struct {
	config Config
}

// NewClient validates the configuration and returns a client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("ssh config: host cannot be empty")
	}
	if cfg.User == "" {
		return nil, fmt.Errorf("ssh config: user cannot be empty")
	}
	if cfg.Password == "" {
		return nil, fmt.Errorf("ssh config: password cannot be empty")
	}
	if cfg.Port == 0 {
		cfg.Port = defaultPort
	}
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = defaultDialTimeout
	}
	if cfg.HostKeyCallback == nil {
		cfg.HostKeyCallback = ssh.InsecureIgnoreHostKey() //nolint:gosec // appliance management interface
	}
	return &Client{config: cfg}, nil
}

// Run executes a command and returns combined output.
func (c *Client) Run(ctx context.Context, command string) (string, error) {
	client, err := c.connect(ctx)
	if err != nil {
		return "", err
	}
	defer func() { _ = client.Close() }()

	session, err := client.NewSession()
	if err != nil {
		return "", fmt.Errorf("ssh session on %s: %w", c.config.Host, err)
	}
	defer func() { _ = session.Close() }()

	out, err := session.CombinedOutput(command)
	if err != nil {
		return string(out), fmt.Errorf("command failed on %s: %w\ncommand: %s\noutput: %s",
			c.config.Host, err, command, string(out))
	}
	return string(out), nil
}

// Output executes a command keeping stdout and stderr apart, which the
// interface-assignment protocol needs: results arrive on stdout, failure
// codes on stderr.
func (c *Client) Output(ctx context.Context, command string) (string, string, error) {
	client, err := c.connect(ctx)
	if err != nil {
		return "", "", err
	}
	defer func() { _ = client.Close() }()

	session, err := client.NewSession()
	if err != nil {
		return "", "", fmt.Errorf("ssh session on %s: %w", c.config.Host, err)
	}
	defer func() { _ = session.Close() }()

	var stdout, stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr
	err = session.Run(command)
	if err != nil {
		return stdout.String(), stderr.String(), fmt.Errorf("command failed on %s: %w", c.config.Host, err)
	}
	return stdout.String(), stderr.String(), nil
}

// Upload streams data to remotePath through stdin and marks it executable.
func (c *Client) Upload(ctx context.Context, data []byte, remotePath string) error {
	client, err := c.connect(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	session, err := client.NewSession()
	if err != nil {
		return fmt.Errorf("ssh session on %s: %w", c.config.Host, err)
	}
	defer func() { _ = session.Close() }()

	session.Stdin = bytes.NewReader(data)
	command := fmt.Sprintf("cat > %s && chmod 0755 %s", remotePath, remotePath)
	if out, err := session.CombinedOutput(command); err != nil {
		return fmt.Errorf("upload to %s:%s: %w\noutput: %s", c.config.Host, remotePath, err, string(out))
	}
	return nil
}

func (c *Client) connect(ctx context.Context) (*ssh.Client, error) {
	cfg := &ssh.ClientConfig{
		User:            c.config.User,
		Auth:            []ssh.AuthMethod{ssh.Password(c.config.Password)},
		HostKeyCallback: c.config.HostKeyCallback,
		Timeout:         c.config.DialTimeout,
	}

	addr := fmt.Sprintf("%s:%d", c.config.Host, c.config.Port)
	var client *ssh.Client

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(defaultRetryDelay), defaultDialRetries),
		ctx,
	)
	err := backoff.Retry(func() error {
		var dialErr error
		client, dialErr = ssh.Dial("tcp", addr, cfg)
		return dialErr
	}, policy)
	if err != nil {
		return nil, fmt.Errorf("ssh dial %s: %w", addr, err)
	}
	return client, nil
}

// LockedCommand wraps command in a FreeBSD lockf invocation on lockPath,
// giving up after timeout. Two runs against the same appliance serialize on
// the lock instead of both editing the configuration document.
func LockedCommand(lockPath string, timeout time.Duration, command string) string {
	secs := int(timeout.Seconds())
	if secs < 1 {
		secs = 1
	}
	return fmt.Sprintf("lockf -k -t %d %s %s", secs, lockPath, command)
}

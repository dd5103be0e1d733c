package deploy

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/toddyivon/GT7-Telemetry-Pro/internal/sshkit"
)

// containerStatusCommand lists the running containers in a compact table.
const containerStatusCommand = `docker ps --format 'table {{.Names}}\t{{.Status}}\t{{.Ports}}'`

// RemoteHost is the full transport session contract the deployer needs.
type RemoteHost interface {
	RemoteTarget
	RunCommand(ctx context.Context, command string) (sshkit.CommandResult, error)
}

// Deployer runs one deployment: mirror the project tree onto the remote
// host, rebuild and start the compose stack, then list container status.
type Deployer struct {
	// Remote is the open transport session. The caller owns it and is
	// responsible for closing it.
	Remote RemoteHost

	// LocalPath is the project root to upload.
	LocalPath string

	// RemotePath is the deployment directory on the remote host.
	RemotePath string

	// ComposeFile is the compose file name, relative to RemotePath.
	ComposeFile string

	// Host and AppPort form the summary URL printed after the run.
	Host    string
	AppPort int

	// Rules is the upload exclusion rule set.
	Rules RuleSet

	// Out receives raw remote command output. Defaults to os.Stdout.
	Out io.Writer

	// Logf receives progress lines. Defaults to log.Printf.
	Logf func(format string, args ...any)
}

// Summary is the outcome of one deployment run.
type Summary struct {
	// Report holds the per-file upload results.
	Report *Report

	// ComposeExit is the exit status of the compose command. Non-zero is
	// reported but does not abort the run.
	ComposeExit int

	// URL is where the deployed application should be reachable.
	URL string
}

func (d *Deployer) out() io.Writer {
	if d.Out != nil {
		return d.Out
	}
	return os.Stdout
}

func (d *Deployer) logf(format string, args ...any) {
	if d.Logf != nil {
		d.Logf(format, args...)
		return
	}
	log.Printf(format, args...)
}

// Run executes the deployment sequence. Only transport-level faults abort
// it: per-file upload failures and non-zero remote command exits are
// reported and the run proceeds to completion.
func (d *Deployer) Run(ctx context.Context) (*Summary, error) {
	// Base directory creation is best-effort; the exit status is not
	// checked. The upload's own directory probe surfaces a missing base.
	d.logf("creating deployment directory: %s", d.RemotePath)
	if _, err := d.Remote.RunCommand(ctx, fmt.Sprintf("mkdir -p %s", sshkit.ShellQuote(d.RemotePath))); err != nil {
		return nil, fmt.Errorf("failed to create deployment directory: %w", err)
	}

	d.logf("uploading files from %s...", d.LocalPath)
	uploader := &Uploader{Remote: d.Remote, Rules: d.Rules, Logf: d.Logf}
	report, err := uploader.Upload(ctx, d.LocalPath, d.RemotePath)
	if err != nil {
		return nil, fmt.Errorf("upload failed: %w", err)
	}
	d.logf("file upload complete: %d uploaded, %d skipped, %d failed",
		report.Uploaded, report.Skipped, report.Failed)

	composeCmd := fmt.Sprintf("cd %s && docker compose -f %s up -d --build --remove-orphans",
		sshkit.ShellQuote(d.RemotePath), sshkit.ShellQuote(d.ComposeFile))
	d.logf("executing: %s", composeCmd)
	composeRes, err := d.Remote.RunCommand(ctx, composeCmd)
	if err != nil {
		return nil, fmt.Errorf("failed to run docker compose: %w", err)
	}
	d.printOutput(composeRes)
	if composeRes.ExitCode != 0 {
		d.logf("docker compose failed with exit code %d", composeRes.ExitCode)
	} else {
		d.logf("docker compose completed successfully")
	}

	// Verification is informational; the listing's exit status is not
	// inspected.
	d.logf("verifying deployment...")
	statusRes, err := d.Remote.RunCommand(ctx, containerStatusCommand)
	if err != nil {
		return nil, fmt.Errorf("failed to list containers: %w", err)
	}
	d.printOutput(statusRes)

	return &Summary{
		Report:      report,
		ComposeExit: composeRes.ExitCode,
		URL:         fmt.Sprintf("http://%s:%d", d.Host, d.AppPort),
	}, nil
}

func (d *Deployer) printOutput(res sshkit.CommandResult) {
	if res.Stdout != "" {
		fmt.Fprintln(d.out(), strings.TrimRight(res.Stdout, "\n"))
	}
	if res.Stderr != "" {
		fmt.Fprintf(d.out(), "STDERR: %s\n", strings.TrimRight(res.Stderr, "\n"))
	}
}

// ContainerStatus runs only the verification step: it lists the containers
// on the remote host and returns the raw table output.
func ContainerStatus(ctx context.Context, remote RemoteHost) (sshkit.CommandResult, error) {
	return remote.RunCommand(ctx, containerStatusCommand)
}

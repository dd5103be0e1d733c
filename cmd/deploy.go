package cmd

import (
	"fmt"
	"os"

	"github.com/sethvargo/go-envconfig"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/toddyivon/GT7-Telemetry-Pro/internal/config"
	"github.com/toddyivon/GT7-Telemetry-Pro/internal/deploy"
	"github.com/toddyivon/GT7-Telemetry-Pro/internal/sshkit"
)

// remoteClient is the session handle the commands hold: the deployment
// contract plus ownership of the connection.
type remoteClient interface {
	deploy.RemoteHost
	Close() error
}

// sshDial opens the transport session. Tests replace it to count and fake
// connection attempts.
var sshDial = func(cfg sshkit.Config) (remoteClient, error) {
	return sshkit.NewClient(cfg)
}

// envLookup resolves environment configuration. Tests replace it with a
// map lookuper.
var envLookup envconfig.Lookuper = envconfig.OsLookuper()

func newDeployCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deploy [password]",
		Short: "Upload the project and rebuild the compose stack on the server",
		Long: `deploy mirrors the local project tree into the deployment directory on
the server over SFTP, skipping dependency caches and other excluded paths,
then runs docker compose with a rebuild and prints the container status.

The SSH password is taken from the first argument, then from the
SSH_PASSWORD environment variable. With --ask-pass it is prompted for
interactively as a last resort.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runDeploy,
	}

	addConnectionFlags(cmd)
	flags := cmd.Flags()
	flags.String("remote-path", "/home/missola/gt7-saas", "deployment directory on the server")
	flags.String("local-path", ".", "local project root to upload")
	flags.String("compose-file", "docker-compose.prod.yml", "compose file name, relative to the remote path")
	flags.Int("app-port", 3000, "published application port, used for the summary URL")
	flags.StringSlice("exclude", []string(deploy.DefaultRules()), "exclusion rules: literal path segments or *suffix wildcards")

	return cmd
}

func addConnectionFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.String("host", "10.70.23.152", "deployment target address")
	flags.Int("port", 22, "SSH port")
	flags.String("user", "missola", "SSH username")
	flags.Duration("timeout", 0, "SSH connect timeout (0 uses the default of 30s)")
	flags.String("known-hosts", "", "known_hosts file for host key verification")
	flags.Bool("insecure", false, "skip host key verification")
	flags.Bool("ask-pass", false, "prompt for the SSH password when none is supplied")
}

// loadOptions resolves the options value object: defaults, then environment
// overrides, then explicitly set flags.
func loadOptions(cmd *cobra.Command) (config.Options, error) {
	opts, err := config.Load(cmd.Context(), envLookup)
	if err != nil {
		return config.Options{}, err
	}

	flags := cmd.Flags()
	if flags.Changed("host") {
		opts.Host, _ = flags.GetString("host")
	}
	if flags.Changed("port") {
		opts.Port, _ = flags.GetInt("port")
	}
	if flags.Changed("user") {
		opts.User, _ = flags.GetString("user")
	}
	if flags.Changed("timeout") {
		opts.Timeout, _ = flags.GetDuration("timeout")
	}
	if flags.Changed("known-hosts") {
		opts.KnownHostsFile, _ = flags.GetString("known-hosts")
	}
	if flags.Changed("insecure") {
		opts.Insecure, _ = flags.GetBool("insecure")
	}
	if f := flags.Lookup("remote-path"); f != nil && f.Changed {
		opts.RemotePath, _ = flags.GetString("remote-path")
	}
	if f := flags.Lookup("local-path"); f != nil && f.Changed {
		opts.LocalPath, _ = flags.GetString("local-path")
	}
	if f := flags.Lookup("compose-file"); f != nil && f.Changed {
		opts.ComposeFile, _ = flags.GetString("compose-file")
	}
	if f := flags.Lookup("app-port"); f != nil && f.Changed {
		opts.AppPort, _ = flags.GetInt("app-port")
	}
	if f := flags.Lookup("exclude"); f != nil {
		opts.Excludes, _ = flags.GetStringSlice("exclude")
	}
	opts.AskPass, _ = flags.GetBool("ask-pass")

	return opts, nil
}

// connect resolves the credential and opens the transport session. The
// credential is resolved first: when it is missing, no connection attempt
// is made.
func connect(cmd *cobra.Command, args []string, opts *config.Options) (remoteClient, error) {
	out := cmd.OutOrStdout()

	var prompt config.PasswordPrompter
	if opts.AskPass && term.IsTerminal(int(os.Stdin.Fd())) {
		prompt = func() (string, error) {
			fmt.Fprintf(out, "Password for %s@%s: ", opts.User, opts.Host)
			password, err := term.ReadPassword(int(os.Stdin.Fd()))
			fmt.Fprintln(out)
			if err != nil {
				return "", err
			}
			return string(password), nil
		}
	}
	if err := opts.ResolvePassword(args, prompt); err != nil {
		return nil, err
	}

	infoColor.Fprintf(out, "Connecting to %s@%s...\n", opts.User, opts.Host)
	client, err := sshDial(sshkit.Config{
		Host:                  opts.Host,
		Port:                  opts.Port,
		User:                  opts.User,
		Password:              opts.Password,
		Timeout:               opts.Timeout,
		KnownHostsFile:        opts.KnownHostsFile,
		InsecureIgnoreHostKey: opts.Insecure,
	})
	if err != nil {
		if sshkit.IsAuthenticationError(err) {
			return nil, fmt.Errorf("authentication failed: check username/password")
		}
		return nil, err
	}
	successColor.Fprintln(out, "SSH connection established!")
	return client, nil
}

func runDeploy(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	opts, err := loadOptions(cmd)
	if err != nil {
		return err
	}

	client, err := connect(cmd, args, &opts)
	if err != nil {
		return err
	}
	defer client.Close()

	deployer := &deploy.Deployer{
		Remote:      client,
		LocalPath:   opts.LocalPath,
		RemotePath:  opts.RemotePath,
		ComposeFile: opts.ComposeFile,
		Host:        opts.Host,
		AppPort:     opts.AppPort,
		Rules:       deploy.RuleSet(opts.Excludes),
		Out:         out,
		Logf: func(format string, logArgs ...any) {
			fmt.Fprintf(out, format+"\n", logArgs...)
		},
	}

	summary, err := deployer.Run(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Fprintln(out)
	if summary.Report.Failed > 0 {
		warnColor.Fprintf(out, "%d file(s) failed to upload\n", summary.Report.Failed)
	}
	if summary.ComposeExit != 0 {
		warnColor.Fprintf(out, "docker compose exited with code %d\n", summary.ComposeExit)
	}
	successColor.Fprintln(out, "Deployment complete!")
	infoColor.Fprintf(out, "Web app should be accessible at: %s\n", summary.URL)
	return nil
}

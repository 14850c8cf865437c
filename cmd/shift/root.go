package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/tapcraft-io/shift/internal/config"
	"github.com/tapcraft-io/shift/internal/exec"
	"github.com/tapcraft-io/shift/internal/history"
	"github.com/tapcraft-io/shift/internal/k8s"
	"github.com/tapcraft-io/shift/internal/logging"
	"github.com/tapcraft-io/shift/internal/openshift"
)

// app carries the state shared by all subcommands. The session is opened
// lazily so that commands such as history work offline.
type app struct {
	cfg     *config.Config
	log     *logrus.Logger
	hist    *history.History
	client  *openshift.Client
	project string

	configFile string
	kubeconfig bool
	wait       bool
	timeout    time.Duration
}

func newRootCommand() *cobra.Command {
	a := &app{}

	var server, token, username, password, ocPath, logLevel string
	var insecure bool

	root := &cobra.Command{
		Use:           "shift",
		Short:         "Cached OpenShift project access and deployment waits",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.NewConfig(a.configFile)
			if err != nil {
				return fmt.Errorf("error loading config: %w", err)
			}

			flags := cmd.Flags()
			overrides := map[string]struct {
				value string
				field *string
			}{
				"server":    {server, &cfg.Server},
				"token":     {token, &cfg.Token},
				"username":  {username, &cfg.Username},
				"password":  {password, &cfg.Password},
				"oc":        {ocPath, &cfg.OcPath},
				"log-level": {logLevel, &cfg.LogLevel},
			}
			for name, o := range overrides {
				if flags.Changed(name) {
					*o.field = o.value
				}
			}
			if flags.Changed("insecure") {
				cfg.VerifySSL = !insecure
			}
			a.cfg = cfg
			a.log = logging.New(cfg.LogLevel, cfg.LogFormat)

			hist, err := history.NewHistory(cfg.HistorySize, cfg.HistoryFile)
			if err != nil {
				// Continue without history
				a.log.WithError(err).Warn("Could not load history")
			}
			a.hist = hist
			return nil
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			if a.hist == nil {
				return
			}
			if err := a.hist.Save(); err != nil {
				a.log.WithError(err).Warn("Could not save history")
			}
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.configFile, "config", "", "config file (default ~/.shift/config.yaml)")
	pf.StringVar(&server, "server", "", "API server URL")
	pf.StringVar(&token, "token", "", "bearer token")
	pf.StringVar(&username, "username", "", "login username")
	pf.StringVar(&password, "password", "", "login password")
	pf.StringVar(&ocPath, "oc", "", "path to the oc binary")
	pf.StringVar(&logLevel, "log-level", "", "log level")
	pf.BoolVar(&insecure, "insecure", false, "skip TLS verification")
	pf.BoolVar(&a.kubeconfig, "kubeconfig", false, "take server and token from the current kubeconfig context")
	pf.StringVarP(&a.project, "project", "p", os.Getenv("SHIFT_PROJECT"), "project to operate in")

	root.AddCommand(
		a.projectsCommand(),
		a.getCommand(),
		a.scaleCommand(),
		a.rolloutCommand(),
		a.waitCommand(),
		a.envCommand(),
		a.logsCommand(),
		a.newProjectCommand(),
		a.deleteProjectCommand(),
		a.newAppCommand(),
		a.routesCommand(),
		a.ocCommand(),
		a.historyCommand(),
		a.configCommand(),
		a.dashboardCommand(),
	)
	return root
}

// addWaitFlags registers --wait and --timeout on commands that can block
func (a *app) addWaitFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&a.wait, "wait", false, "block until the operation completes")
	cmd.Flags().DurationVar(&a.timeout, "timeout", 0, "wait timeout (default from config)")
}

func (a *app) waitOptions() openshift.WaitOptions {
	return openshift.WaitOptions{Block: a.wait, Timeout: a.timeout}
}

// connect authenticates and opens the session
func (a *app) connect(ctx context.Context) (*openshift.Client, error) {
	if a.client != nil {
		return a.client, nil
	}

	if a.kubeconfig {
		creds, err := k8s.CredentialsFromKubeconfig("")
		if err != nil {
			return nil, fmt.Errorf("read kubeconfig: %w", err)
		}
		a.cfg.Server, a.cfg.Token = creds.Server, creds.Token
		a.log.WithField("context", creds.Context).Debug("Using kubeconfig credentials")
	}

	executor, err := exec.NewExecutor(a.cfg.OcPath)
	if err != nil {
		return nil, err
	}

	ocfg := openshift.Config{
		Server:         a.cfg.Server,
		Token:          a.cfg.Token,
		Username:       a.cfg.Username,
		Password:       a.cfg.Password,
		VerifySSL:      a.cfg.VerifySSL,
		CacheTTL:       a.cfg.CacheTTL,
		PollInterval:   a.cfg.PollInterval,
		DefaultTimeout: a.cfg.DefaultTimeout,
	}
	token, err := openshift.Authenticate(ctx, ocfg, executor)
	if err != nil {
		return nil, err
	}
	ocfg.Token, ocfg.Username, ocfg.Password = token, "", ""

	transport, err := k8s.NewTransport(ocfg.Server, token, ocfg.VerifySSL)
	if err != nil {
		return nil, fmt.Errorf("error connecting to %s: %w", ocfg.Server, err)
	}

	opts := []openshift.Option{openshift.WithLogger(a.log)}
	if a.hist != nil {
		opts = append(opts, openshift.WithJournal(a.hist))
	}
	client, err := openshift.New(ocfg, transport, executor, opts...)
	if err != nil {
		return nil, err
	}
	a.client = client
	return client, nil
}

// currentProject opens the session and looks up --project
func (a *app) currentProject(ctx context.Context) (*openshift.Project, error) {
	if a.project == "" {
		return nil, fmt.Errorf("no project selected, use --project or SHIFT_PROJECT")
	}
	client, err := a.connect(ctx)
	if err != nil {
		return nil, err
	}
	p, ok, err := client.Project(ctx, a.project)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("project %q not found", a.project)
	}
	return p, nil
}

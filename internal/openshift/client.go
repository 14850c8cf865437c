// Package openshift models the objects of an OpenShift cluster. Reads go
// through a Transport and are cached per scope; mutations run through oc and
// invalidate the collections they affect.
package openshift

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kballard/go-shellquote"
	"github.com/sirupsen/logrus"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	utiljson "k8s.io/apimachinery/pkg/util/json"
	"k8s.io/utils/clock"

	"github.com/tapcraft-io/shift/internal/exec"
	"github.com/tapcraft-io/shift/internal/wait"
)

const (
	DefaultPollInterval = 5 * time.Second
	DefaultTimeout      = 10 * time.Minute
)

// Transport reads raw API payloads
type Transport interface {
	Read(ctx context.Context, path string) ([]byte, error)
	Discover(ctx context.Context, groupPath string) ([]string, error)
}

// CommandExecutor runs oc with a full argument vector
type CommandExecutor interface {
	Execute(ctx context.Context, args []string) *exec.ExecuteResult
}

// Journal records executed commands
type Journal interface {
	Add(command string, success bool, server, namespace string)
}

// Config holds the session inputs
type Config struct {
	Server    string
	Token     string
	Username  string
	Password  string
	VerifySSL bool

	CacheTTL       time.Duration
	PollInterval   time.Duration
	DefaultTimeout time.Duration
}

// Validate checks that exactly one authentication mode is configured
func (c Config) Validate() error {
	if c.Server == "" {
		return &AuthenticationConfigError{Reason: "server is required"}
	}
	hasToken := c.Token != ""
	hasLogin := c.Username != "" || c.Password != ""
	switch {
	case hasToken && hasLogin:
		return &AuthenticationConfigError{Reason: "token and username/password are mutually exclusive"}
	case hasLogin && (c.Username == "" || c.Password == ""):
		return &AuthenticationConfigError{Reason: "username and password must both be set"}
	case !hasToken && !hasLogin:
		return &AuthenticationConfigError{Reason: "either a token or username and password is required"}
	}
	return nil
}

// WaitOptions selects blocking behaviour for long-running mutations. Zero
// Timeout and Interval fall back to the session defaults.
type WaitOptions struct {
	Block    bool
	Timeout  time.Duration
	Interval time.Duration
}

// Blocking is a shorthand for WaitOptions{Block: true}
var Blocking = WaitOptions{Block: true}

// Option configures a Client
type Option func(*Client)

func WithLogger(log logrus.FieldLogger) Option {
	return func(c *Client) { c.log = log }
}

func WithClock(clk clock.Clock) Option {
	return func(c *Client) { c.clock = clk }
}

func WithJournal(j Journal) Option {
	return func(c *Client) { c.journal = j }
}

func WithGroups(groups ...Group) Option {
	return func(c *Client) { c.groups = groups }
}

// Client is the session root. It owns the router, the cache and the wait
// engine, and is the scope of cluster-level collections such as projects.
type Client struct {
	server    string
	token     string
	verifySSL bool

	transport Transport
	executor  CommandExecutor
	journal   Journal
	router    *EntityRouter
	cache     *ResourceCache
	waiter    *wait.Engine
	clock     clock.Clock
	groups    []Group
	log       logrus.FieldLogger

	pollInterval time.Duration
	timeout      time.Duration
	seq          uint64
}

// Authenticate returns the bearer token for cfg, logging in through oc when
// only a username and password are configured
func Authenticate(ctx context.Context, cfg Config, executor CommandExecutor) (string, error) {
	if err := cfg.Validate(); err != nil {
		return "", err
	}
	if cfg.Token != "" {
		return cfg.Token, nil
	}

	login := exec.NewCommand("login", cfg.Server).With(exec.Options{
		"username": cfg.Username,
		"password": cfg.Password,
	})
	if !cfg.VerifySSL {
		login = login.With(exec.Options{"insecure-skip-tls-verify": true})
	}
	if _, err := run(ctx, executor, login.Argv(), cfg.Password); err != nil {
		return "", err
	}

	out, err := run(ctx, executor, exec.NewCommand("whoami").With(exec.Options{"show-token": true}).Argv(), cfg.Password)
	if err != nil {
		return "", err
	}
	token := strings.TrimSpace(out)
	if token == "" {
		return "", &AuthenticationConfigError{Reason: "oc whoami returned an empty token"}
	}
	return token, nil
}

func run(ctx context.Context, executor CommandExecutor, args []string, secret string) (string, error) {
	result := executor.Execute(ctx, args)
	if result.Failed() {
		return "", &CommandExecutionError{
			Command:  shellquote.Join(exec.Redact(args, secret)...),
			ExitCode: result.ExitCode,
			Stdout:   result.Stdout,
			Stderr:   result.Stderr,
			Err:      result.Error,
		}
	}
	return result.Stdout, nil
}

// New creates a session. cfg must carry a token; use Authenticate first
// when logging in with a username and password.
func New(cfg Config, transport Transport, executor CommandExecutor, opts ...Option) (*Client, error) {
	if cfg.Token == "" {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		return nil, &AuthenticationConfigError{Reason: "token required, call Authenticate first"}
	}

	c := &Client{
		server:       strings.TrimSuffix(cfg.Server, "/"),
		token:        cfg.Token,
		verifySSL:    cfg.VerifySSL,
		transport:    transport,
		executor:     executor,
		log:          logrus.StandardLogger(),
		pollInterval: cfg.PollInterval,
		timeout:      cfg.DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.server == "" {
		return nil, &AuthenticationConfigError{Reason: "server is required"}
	}
	if c.pollInterval <= 0 {
		c.pollInterval = DefaultPollInterval
	}
	if c.timeout <= 0 {
		c.timeout = DefaultTimeout
	}

	c.router = NewEntityRouter(transport, c.groups, c.log)
	c.cache = NewResourceCache(cfg.CacheTTL, c.loadCollection, c.log)
	c.waiter = wait.NewEngine(c.clock, c.log)
	return c, nil
}

func (c *Client) Server() string { return c.server }

func (c *Client) Router() *EntityRouter { return c.router }

func (c *Client) Cache() *ResourceCache { return c.cache }

func (c *Client) ScopeKey() string { return "cluster" }

func (c *Client) Namespace() string { return "" }

func (c *Client) InvalidateKind(kind Kind) { c.cache.InvalidateKind(c, kind) }

// Invalidate drops every cached collection of the session
func (c *Client) Invalidate() { c.cache.Flush() }

// Execute runs cmd through oc with the session's server and token
func (c *Client) Execute(ctx context.Context, cmd exec.Command) error {
	_, err := c.Output(ctx, cmd)
	return err
}

// Output is Execute returning the command's stdout
func (c *Client) Output(ctx context.Context, cmd exec.Command) (string, error) {
	global := []string{"--server=" + c.server, "--token=" + c.token}
	if !c.verifySSL {
		global = append(global, "--insecure-skip-tls-verify=true")
	}
	args := append(global, cmd.Argv()...)
	redacted := shellquote.Join(exec.Redact(args, c.token)...)

	log := c.log.WithField("component", "exec")
	log.Debug(redacted)

	result := c.executor.Execute(ctx, args)
	failed := result.Failed()

	if c.journal != nil {
		ns, _ := cmd.Options["namespace"].(string)
		c.journal.Add(shellquote.Join(cmd.Argv()...), !failed, c.server, ns)
	}

	if failed {
		log.WithFields(logrus.Fields{"status": result.ExitCode, "stderr": result.Stderr}).Errorf("Command failed: %s", redacted)
		log.Debug(result.Stdout)
		return "", &CommandExecutionError{
			Command:  redacted,
			ExitCode: result.ExitCode,
			Stdout:   result.Stdout,
			Stderr:   result.Stderr,
			Err:      result.Error,
		}
	}
	return result.Stdout, nil
}

// ReadLink fetches a single object by path
func (c *Client) ReadLink(ctx context.Context, link string) (*unstructured.Unstructured, error) {
	body, err := c.read(ctx, link)
	if err != nil {
		return nil, err
	}
	obj, err := decode(body)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", link, err)
	}
	return &unstructured.Unstructured{Object: obj}, nil
}

func (c *Client) read(ctx context.Context, path string) ([]byte, error) {
	body, err := c.transport.Read(ctx, path)
	if err != nil {
		c.log.WithField("component", "transport").WithError(err).Errorf("GET %s failed", path)
		return nil, err
	}
	return body, nil
}

// readList fetches a collection. A payload without items is an empty list.
func (c *Client) readList(ctx context.Context, path string) ([]*unstructured.Unstructured, error) {
	body, err := c.read(ctx, path)
	if err != nil {
		return nil, err
	}
	obj, err := decode(body)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}

	items, _, _ := unstructured.NestedSlice(obj, "items")
	out := make([]*unstructured.Unstructured, 0, len(items))
	for _, item := range items {
		if m, ok := item.(map[string]any); ok {
			out = append(out, &unstructured.Unstructured{Object: m})
		}
	}
	return out, nil
}

func decode(body []byte) (map[string]any, error) {
	var obj map[string]any
	if err := utiljson.Unmarshal(body, &obj); err != nil {
		return nil, err
	}
	if obj == nil {
		obj = map[string]any{}
	}
	return obj, nil
}

func (c *Client) collectionPath(ctx context.Context, kind Kind, namespace string) (string, error) {
	group, err := c.router.Resolve(ctx, kind)
	if err != nil {
		return "", err
	}
	if namespace == "" || kind == KindProject {
		return group.Path + "/" + string(kind), nil
	}
	return group.Path + "/namespaces/" + namespace + "/" + string(kind), nil
}

func (c *Client) objectPath(ctx context.Context, kind Kind, namespace, name string) (string, error) {
	base, err := c.collectionPath(ctx, kind, namespace)
	if err != nil {
		return "", err
	}
	return base + "/" + name, nil
}

// fetch reads every object of kind in namespace
func (c *Client) fetch(ctx context.Context, kind Kind, namespace string) ([]*unstructured.Unstructured, error) {
	path, err := c.collectionPath(ctx, kind, namespace)
	if err != nil {
		return nil, err
	}
	return c.readList(ctx, path)
}

func (c *Client) loadCollection(ctx context.Context, kind Kind, scope Scope) (map[string]Resource, error) {
	items, err := c.fetch(ctx, kind, scope.Namespace())
	if err != nil {
		return nil, err
	}
	return c.wrapAll(scope, kind, items), nil
}

func (c *Client) wrapAll(scope Scope, kind Kind, items []*unstructured.Unstructured) map[string]Resource {
	out := make(map[string]Resource, len(items))
	for _, u := range items {
		out[u.GetName()] = wrap(c.newObject(scope, kind, u))
	}
	return out
}

// derived returns a loader that fetches the namespace's collection of kind
// and keeps the items matching keep, owned by scope
func (c *Client) derived(keep func(*unstructured.Unstructured) bool) LoadFunc {
	return func(ctx context.Context, kind Kind, scope Scope) (map[string]Resource, error) {
		items, err := c.fetch(ctx, kind, scope.Namespace())
		if err != nil {
			return nil, err
		}
		matched := items[:0]
		for _, u := range items {
			if keep(u) {
				matched = append(matched, u)
			}
		}
		return c.wrapAll(scope, kind, matched), nil
	}
}

func (c *Client) waitSpec(description string, opts WaitOptions) wait.Spec {
	spec := wait.Spec{Description: description, Timeout: opts.Timeout, Interval: opts.Interval}
	if spec.Timeout <= 0 {
		spec.Timeout = c.timeout
	}
	if spec.Interval <= 0 {
		spec.Interval = c.pollInterval
	}
	return spec
}

func (c *Client) await(ctx context.Context, description string, opts WaitOptions, cond wait.Condition) error {
	return c.waiter.Await(ctx, c.waitSpec(description, opts), cond)
}

// Projects returns the projects visible to the session
func (c *Client) Projects(ctx context.Context, force bool) (map[string]*Project, error) {
	return projectsAccessor.list(ctx, c.cache, c, force)
}

// Project looks a project up by name, refreshing the list once if it is
// not cached yet
func (c *Client) Project(ctx context.Context, name string) (*Project, bool, error) {
	projects, err := c.Projects(ctx, false)
	if err != nil {
		return nil, false, err
	}
	if p, ok := projects[name]; ok {
		return p, true, nil
	}

	projects, err = c.Projects(ctx, true)
	if err != nil {
		return nil, false, err
	}
	p, ok := projects[name]
	return p, ok, nil
}

// CreateProject creates a project and waits until it is listed
func (c *Client) CreateProject(ctx context.Context, name string, opts exec.Options) (*Project, error) {
	if err := c.Execute(ctx, exec.NewCommand("new-project", name).With(opts)); err != nil {
		return nil, err
	}

	var project *Project
	err := c.await(ctx, "project "+name+" to be listed", WaitOptions{}, func(ctx context.Context) (bool, error) {
		projects, err := c.Projects(ctx, true)
		if err != nil {
			return false, err
		}
		project = projects[name]
		return project != nil, nil
	})
	if err != nil {
		return nil, err
	}
	return project, nil
}

// WaitProjectDeletion blocks until name is no longer listed
func (c *Client) WaitProjectDeletion(ctx context.Context, name string, opts WaitOptions) error {
	return c.await(ctx, "project "+name+" to be deleted", opts, func(ctx context.Context) (bool, error) {
		projects, err := c.Projects(ctx, true)
		if err != nil {
			return false, err
		}
		_, listed := projects[name]
		return !listed, nil
	})
}

// Package fakecluster is an in-memory OpenShift API and oc stand-in for
// tests. It serves reads and discovery like the API server and applies a
// small set of oc mutations to its object store.
package fakecluster

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"

	jsonpatch "github.com/evanphx/json-patch"

	"github.com/tapcraft-io/shift/internal/exec"
	"github.com/tapcraft-io/shift/internal/k8s"
)

const (
	CorePath      = "/api/v1"
	ExtensionPath = "/oapi/v1"
)

// Command is an oc invocation with the session flags stripped
type Command struct {
	Args      []string
	Namespace string
	Flags     map[string][]string
}

// Verb returns the first n positional arguments joined by a space
func (c Command) Verb(n int) string {
	if n > len(c.Args) {
		n = len(c.Args)
	}
	return strings.Join(c.Args[:n], " ")
}

// Flag returns the first value of a flag
func (c Command) Flag(name string) string {
	if v := c.Flags[name]; len(v) > 0 {
		return v[0]
	}
	return ""
}

// Handler implements one oc verb. A nil result means success with no output.
type Handler func(c *Cluster, cmd Command) *exec.ExecuteResult

// Cluster stores objects keyed by kind, namespace and name
type Cluster struct {
	mu sync.Mutex

	groups    map[string][]string
	objects   map[string]map[string]any
	logs      map[string]string
	handlers  map[string]Handler
	reads     map[string]int
	discovery map[string]int
	commands  []Command
	onRead    []func(path string)

	failDiscovery int
	failReads     map[string]int
}

// New returns a cluster serving the default core and extension groups
func New() *Cluster {
	c := &Cluster{
		groups: map[string][]string{
			CorePath: {
				"pods", "pods/log", "replicationcontrollers", "services",
				"secrets", "configmaps", "namespaces",
			},
			ExtensionPath: {
				"projects", "deploymentconfigs", "deploymentconfigs/scale",
				"routes", "templates", "rolebindings",
			},
		},
		objects:   map[string]map[string]any{},
		logs:      map[string]string{},
		handlers:  map[string]Handler{},
		reads:     map[string]int{},
		discovery: map[string]int{},
		failReads: map[string]int{},
	}
	c.handlers["delete"] = handleDelete
	c.handlers["patch"] = handlePatch
	c.handlers["scale"] = handleScale
	c.handlers["new-project"] = handleNewProject
	return c
}

func key(kind, namespace, name string) string {
	return kind + "|" + namespace + "|" + name
}

// SetGroup replaces the kinds served under a group path
func (c *Cluster) SetGroup(path string, kinds ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.groups[path] = kinds
}

// Add stores obj, filling in metadata.name and metadata.namespace
func (c *Cluster) Add(kind, namespace, name string, obj map[string]any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.add(kind, namespace, name, obj)
}

func (c *Cluster) add(kind, namespace, name string, obj map[string]any) {
	if obj == nil {
		obj = map[string]any{}
	}
	meta, _ := obj["metadata"].(map[string]any)
	if meta == nil {
		meta = map[string]any{}
		obj["metadata"] = meta
	}
	meta["name"] = name
	if namespace != "" {
		meta["namespace"] = namespace
	}
	c.objects[key(kind, namespace, name)] = obj
}

// AddProject stores a project
func (c *Cluster) AddProject(name string) {
	c.Add("projects", "", name, map[string]any{
		"kind":   "Project",
		"status": map[string]any{"phase": "Active"},
	})
}

// Remove deletes an object
func (c *Cluster) Remove(kind, namespace, name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.objects, key(kind, namespace, name))
}

// Mutate changes a stored object in place. It reports whether it existed.
func (c *Cluster) Mutate(kind, namespace, name string, fn func(obj map[string]any)) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	obj, ok := c.objects[key(kind, namespace, name)]
	if ok {
		fn(obj)
	}
	return ok
}

// Object returns a copy of a stored object
func (c *Cluster) Object(kind, namespace, name string) (map[string]any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	obj, ok := c.objects[key(kind, namespace, name)]
	if !ok {
		return nil, false
	}
	return deepCopy(obj), true
}

// SetLogs sets the log served for a pod
func (c *Cluster) SetLogs(namespace, pod, text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.logs[namespace+"/"+pod] = text
}

// Handle registers a handler for a verb such as "rollout latest" or
// "whoami". Handlers for two-word verbs win over one-word ones.
func (c *Cluster) Handle(verb string, h Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[verb] = h
}

// OnRead registers a hook run before every read, e.g. to advance a rollout
func (c *Cluster) OnRead(fn func(path string)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onRead = append(c.onRead, fn)
}

// FailDiscovery makes the next n discovery reads fail
func (c *Cluster) FailDiscovery(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failDiscovery = n
}

// FailReads makes the next n reads of path fail with 503
func (c *Cluster) FailReads(path string, n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failReads[path] = n
}

// Reads returns how often path was read
func (c *Cluster) Reads(path string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reads[path]
}

// TotalReads returns the number of object reads, excluding discovery
func (c *Cluster) TotalReads() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	total := 0
	for _, n := range c.reads {
		total += n
	}
	return total
}

// DiscoveryReads returns how often a group path was discovered
func (c *Cluster) DiscoveryReads(path string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.discovery[path]
}

// Commands returns every executed command in order
func (c *Cluster) Commands() []Command {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Command(nil), c.commands...)
}

// Discover implements the discovery read of a group
func (c *Cluster) Discover(_ context.Context, groupPath string) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.discovery[groupPath]++

	if c.failDiscovery > 0 {
		c.failDiscovery--
		return nil, &k8s.ReadError{Path: groupPath, StatusCode: http.StatusServiceUnavailable, Body: []byte(`{"kind":"Status","code":503}`)}
	}
	kinds, ok := c.groups[groupPath]
	if !ok {
		return nil, notFound(groupPath)
	}
	return append([]string(nil), kinds...), nil
}

// Read serves list, get and pod log paths
func (c *Cluster) Read(_ context.Context, path string) ([]byte, error) {
	c.mu.Lock()
	hooks := append([]func(string){}, c.onRead...)
	c.mu.Unlock()
	for _, hook := range hooks {
		hook(path)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.reads[path]++

	if c.failReads[path] > 0 {
		c.failReads[path]--
		return nil, &k8s.ReadError{Path: path, StatusCode: http.StatusServiceUnavailable, Body: []byte(`{"kind":"Status","code":503}`)}
	}

	group, rest, ok := c.splitPath(path)
	if !ok {
		return nil, notFound(path)
	}

	parts := strings.Split(strings.Trim(rest, "/"), "/")
	namespace := ""
	if len(parts) >= 3 && parts[0] == "namespaces" {
		namespace, parts = parts[1], parts[2:]
	}
	kind := parts[0]
	if !c.serves(group, kind) {
		return nil, notFound(path)
	}

	switch len(parts) {
	case 1:
		return json.Marshal(c.list(kind, namespace))
	case 2:
		obj, ok := c.objects[key(kind, namespace, parts[1])]
		if !ok {
			return nil, notFound(path)
		}
		return json.Marshal(obj)
	case 3:
		if kind == "pods" && parts[2] == "log" {
			if logs, ok := c.logs[namespace+"/"+parts[1]]; ok {
				return []byte(logs), nil
			}
		}
	}
	return nil, notFound(path)
}

func (c *Cluster) splitPath(path string) (string, string, bool) {
	for group := range c.groups {
		if strings.HasPrefix(path, group+"/") {
			return group, strings.TrimPrefix(path, group), true
		}
	}
	return "", "", false
}

func (c *Cluster) serves(group, kind string) bool {
	for _, k := range c.groups[group] {
		if k == kind {
			return true
		}
	}
	return false
}

func (c *Cluster) list(kind, namespace string) map[string]any {
	prefix := kind + "|"
	if namespace != "" {
		prefix += namespace + "|"
	}
	var keys []string
	for k := range c.objects {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	items := make([]any, 0, len(keys))
	for _, k := range keys {
		items = append(items, c.objects[k])
	}
	return map[string]any{"kind": "List", "items": items}
}

// Execute records and applies an oc invocation
func (c *Cluster) Execute(_ context.Context, args []string) *exec.ExecuteResult {
	cmd := parse(args)

	c.mu.Lock()
	c.commands = append(c.commands, cmd)
	h := c.handlers[cmd.Verb(2)]
	if h == nil {
		h = c.handlers[cmd.Verb(1)]
	}
	c.mu.Unlock()

	var result *exec.ExecuteResult
	if h != nil {
		result = h(c, cmd)
	}
	if result == nil {
		result = &exec.ExecuteResult{}
	}
	result.Args = args
	return result
}

func parse(args []string) Command {
	cmd := Command{Flags: map[string][]string{}}
	for _, arg := range args {
		if !strings.HasPrefix(arg, "--") {
			cmd.Args = append(cmd.Args, arg)
			continue
		}
		name, value, _ := strings.Cut(strings.TrimPrefix(arg, "--"), "=")
		switch name {
		case "server", "token", "insecure-skip-tls-verify":
		case "namespace":
			cmd.Namespace = value
		default:
			cmd.Flags[name] = append(cmd.Flags[name], value)
		}
	}
	return cmd
}

// Failure builds a failed result
func Failure(code int, stderr string) *exec.ExecuteResult {
	return &exec.ExecuteResult{ExitCode: code, Stderr: stderr, Error: fmt.Errorf("exit status %d", code)}
}

// Success builds a successful result with output
func Success(stdout string) *exec.ExecuteResult {
	return &exec.ExecuteResult{Stdout: stdout}
}

var kindAliases = map[string]string{
	"dc":  "deploymentconfigs",
	"rc":  "replicationcontrollers",
	"svc": "services",
	"cm":  "configmaps",
	"po":  "pods",
}

func plural(kind string) string {
	if p, ok := kindAliases[kind]; ok {
		return p
	}
	if strings.HasSuffix(kind, "s") {
		return kind
	}
	return kind + "s"
}

func handleDelete(c *Cluster, cmd Command) *exec.ExecuteResult {
	if len(cmd.Args) < 3 {
		return Failure(1, "error: resource name required")
	}
	kind, name := plural(cmd.Args[1]), cmd.Args[2]
	namespace := cmd.Namespace
	if kind == "projects" {
		namespace = ""
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	k := key(kind, namespace, name)
	if _, ok := c.objects[k]; !ok {
		return Failure(1, fmt.Sprintf("Error from server (NotFound): %s %q not found", kind, name))
	}
	delete(c.objects, k)
	if kind == "projects" {
		for other := range c.objects {
			if strings.Contains(other, "|"+name+"|") {
				delete(c.objects, other)
			}
		}
	}
	return Success(fmt.Sprintf("%s %q deleted", cmd.Args[1], name))
}

func handlePatch(c *Cluster, cmd Command) *exec.ExecuteResult {
	if len(cmd.Args) < 3 {
		return Failure(1, "error: resource name required")
	}
	kind, name := plural(cmd.Args[1]), cmd.Args[2]

	c.mu.Lock()
	defer c.mu.Unlock()
	k := key(kind, cmd.Namespace, name)
	obj, ok := c.objects[k]
	if !ok {
		return Failure(1, fmt.Sprintf("Error from server (NotFound): %s %q not found", kind, name))
	}

	doc, err := json.Marshal(obj)
	if err != nil {
		return Failure(1, err.Error())
	}
	patched, err := jsonpatch.MergePatch(doc, []byte(cmd.Flag("patch")))
	if err != nil {
		return Failure(1, "error: unable to parse patch: "+err.Error())
	}
	var updated map[string]any
	if err := json.Unmarshal(patched, &updated); err != nil {
		return Failure(1, err.Error())
	}
	c.objects[k] = updated
	return Success(fmt.Sprintf("%s/%s patched", cmd.Args[1], name))
}

func handleScale(c *Cluster, cmd Command) *exec.ExecuteResult {
	if len(cmd.Args) < 3 {
		return Failure(1, "error: resource name required")
	}
	kind, name := plural(cmd.Args[1]), cmd.Args[2]
	var replicas int64
	if _, err := fmt.Sscan(cmd.Flag("replicas"), &replicas); err != nil {
		return Failure(1, "error: --replicas is required")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	obj, ok := c.objects[key(kind, cmd.Namespace, name)]
	if !ok {
		return Failure(1, fmt.Sprintf("Error from server (NotFound): %s %q not found", kind, name))
	}
	spec, _ := obj["spec"].(map[string]any)
	if spec == nil {
		spec = map[string]any{}
		obj["spec"] = spec
	}
	spec["replicas"] = replicas
	return Success(fmt.Sprintf("%s/%s scaled", cmd.Args[1], name))
}

func handleNewProject(c *Cluster, cmd Command) *exec.ExecuteResult {
	if len(cmd.Args) < 2 {
		return Failure(1, "error: must have exactly one argument")
	}
	c.AddProject(cmd.Args[1])
	return Success(fmt.Sprintf("Now using project %q", cmd.Args[1]))
}

func notFound(path string) error {
	return &k8s.ReadError{
		Path:       path,
		StatusCode: http.StatusNotFound,
		Body:       []byte(`{"kind":"Status","status":"Failure","reason":"NotFound","code":404}`),
	}
}

func deepCopy(obj map[string]any) map[string]any {
	data, _ := json.Marshal(obj)
	var out map[string]any
	_ = json.Unmarshal(data, &out)
	return out
}

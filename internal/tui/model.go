// Package tui implements the project dashboard: a resource browser over the
// session cache with a spinner while collections load and a key to force a
// refresh.
package tui

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"gopkg.in/yaml.v3"

	"github.com/tapcraft-io/shift/internal/history"
	"github.com/tapcraft-io/shift/internal/openshift"
	"github.com/tapcraft-io/shift/pkg/types"
)

// Source returns the cached collections of one project.
// *openshift.Project implements it.
type Source interface {
	Name() string
	Resources(ctx context.Context, kind openshift.Kind, force bool) (map[string]openshift.Resource, error)
}

// DashboardKinds are the kinds the dashboard cycles through
var DashboardKinds = []openshift.Kind{
	openshift.KindDeploymentConfig,
	openshift.KindReplicationController,
	openshift.KindPod,
	openshift.KindService,
	openshift.KindRoute,
	openshift.KindConfigMap,
	openshift.KindSecret,
	openshift.KindTemplate,
	openshift.KindRoleBinding,
}

// Model represents the dashboard state
type Model struct {
	resourceList list.Model
	historyList  list.Model
	viewport     viewport.Model
	spinner      spinner.Model

	mode   types.Mode
	width  int
	height int

	source  Source
	server  string
	kindIdx int
	objects map[string]openshift.Resource

	history *history.History

	quitting     bool
	err          error
	statusMsg    string
	ctrlCPressed int
	ctrlCTime    time.Time
}

// NewModel creates a dashboard for source. hist may be nil.
func NewModel(source Source, server string, hist *history.History) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = spinnerStyle

	vp := viewport.New(80, 20)
	vp.Style = viewportStyle

	delegate := list.NewDefaultDelegate()
	rl := list.New([]list.Item{}, delegate, 60, 20)
	rl.SetShowStatusBar(false)
	rl.SetFilteringEnabled(true)

	hl := list.New([]list.Item{}, delegate, 60, 20)
	hl.Title = "Command History"
	hl.SetShowStatusBar(false)
	hl.SetFilteringEnabled(true)

	m := Model{
		resourceList: rl,
		historyList:  hl,
		viewport:     vp,
		spinner:      s,
		mode:         types.ModeLoading,
		source:       source,
		server:       server,
		history:      hist,
	}
	m.resourceList.Title = m.kind().CommandName() + "s"
	return m
}

// Init starts the spinner and loads the first kind
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		loadResources(m.source, m.kind(), false),
	)
}

func (m Model) kind() openshift.Kind {
	return DashboardKinds[m.kindIdx]
}

// Messages for async operations
type (
	resourcesLoadedMsg struct {
		kind    openshift.Kind
		objects map[string]openshift.Resource
		forced  bool
	}
	errMsg struct{ err error }
)

// loadResources reads a collection through the cache. force bypasses it.
func loadResources(source Source, kind openshift.Kind, force bool) tea.Cmd {
	return func() tea.Msg {
		objects, err := source.Resources(context.Background(), kind, force)
		if err != nil {
			return errMsg{err: fmt.Errorf("failed to load %s: %w", kind, err)}
		}
		return resourcesLoadedMsg{kind: kind, objects: objects, forced: force}
	}
}

// Item adapter for list.Item interface
type listItem struct {
	item types.ListItem
}

func (i listItem) FilterValue() string { return i.item.FilterValue() }

func (i listItem) Title() string { return i.item.Title }

func (i listItem) Description() string { return i.item.Description }

func convertToListItems(items []types.ListItem) []list.Item {
	result := make([]list.Item, len(items))
	for i, item := range items {
		result[i] = listItem{item: item}
	}
	return result
}

// toListItems sorts objects by name and summarizes each one
func toListItems(objects map[string]openshift.Resource) []types.ListItem {
	names := make([]string, 0, len(objects))
	for name := range objects {
		names = append(names, name)
	}
	sort.Strings(names)

	items := make([]types.ListItem, 0, len(names))
	for _, name := range names {
		status, desc := Describe(objects[name])
		items = append(items, types.ListItem{
			Title:       name,
			Description: RenderStatus(status) + " " + desc,
			Metadata:    map[string]string{"status": status},
		})
	}
	return items
}

// Describe returns a status word and a one-line summary for an object
func Describe(r openshift.Resource) (string, string) {
	switch o := r.(type) {
	case *openshift.Pod:
		return o.Phase(), fmt.Sprintf("%s | containers: %s", o.Phase(), strings.Join(o.Containers(), ", "))
	case *openshift.DeploymentConfig:
		return "Active", fmt.Sprintf("replicas: %d | version: %d", o.Replicas(), o.LatestVersion())
	case *openshift.ReplicationController:
		return o.Phase(), fmt.Sprintf("%s | ready %d/%d", o.Phase(), o.ReadyReplicas(), o.Replicas())
	case *openshift.Service:
		return "Active", fmt.Sprintf("%s | %s", o.Type(), o.ClusterIP())
	case *openshift.Route:
		return "Active", fmt.Sprintf("%s -> %s", o.Address(), o.ServiceName())
	case *openshift.Secret:
		return "Active", fmt.Sprintf("%s | %d keys", o.Type(), len(o.Keys()))
	case *openshift.ConfigMap:
		return "Active", fmt.Sprintf("%d keys", len(o.Data()))
	case *openshift.Template:
		return "Active", fmt.Sprintf("parameters: %s", strings.Join(o.Parameters(), ", "))
	case *openshift.RoleBinding:
		return "Active", fmt.Sprintf("%s | %s", o.RoleName(), strings.Join(o.Subjects(), ", "))
	default:
		return "", string(r.Base().Kind())
	}
}

// renderObject renders an object's payload as YAML
func renderObject(r openshift.Resource) string {
	out, err := yaml.Marshal(r.Base().Raw().Object)
	if err != nil {
		return RenderError(err.Error())
	}
	return string(out)
}

package openshift

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"
	"k8s.io/apimachinery/pkg/util/sets"
)

// Group is an API group prefix that serves a set of kinds
type Group struct {
	Name string
	Path string
}

var (
	CoreGroup      = Group{Name: "core", Path: "/api/v1"}
	ExtensionGroup = Group{Name: "extension", Path: "/oapi/v1"}
)

// DefaultGroups are searched in order when resolving a kind
func DefaultGroups() []Group {
	return []Group{CoreGroup, ExtensionGroup}
}

// EntityRouter maps a kind to the API group that serves it. Discovery runs
// once per session; failed discovery reads are retried on the next call.
type EntityRouter struct {
	transport Transport
	groups    []Group
	supported map[string]sets.Set[string]
	log       logrus.FieldLogger
}

// NewEntityRouter creates a router over groups. A nil or empty groups uses
// DefaultGroups.
func NewEntityRouter(transport Transport, groups []Group, log logrus.FieldLogger) *EntityRouter {
	if len(groups) == 0 {
		groups = DefaultGroups()
	}
	return &EntityRouter{
		transport: transport,
		groups:    groups,
		supported: make(map[string]sets.Set[string], len(groups)),
		log:       log.WithField("component", "router"),
	}
}

// Groups returns the configured groups in resolution order
func (r *EntityRouter) Groups() []Group {
	return r.groups
}

// Resolve returns the first group serving kind
func (r *EntityRouter) Resolve(ctx context.Context, kind Kind) (Group, error) {
	for _, g := range r.groups {
		if _, err := r.discover(ctx, g); err != nil {
			return Group{}, err
		}
	}

	for _, g := range r.groups {
		if r.supported[g.Name].Has(string(kind)) {
			return g, nil
		}
	}

	names := make([]string, 0, len(r.groups))
	for _, g := range r.groups {
		names = append(names, g.Name)
	}
	return Group{}, &UnsupportedResourceKindError{Kind: kind, Groups: names}
}

// Supported returns the sorted kinds served by group
func (r *EntityRouter) Supported(ctx context.Context, group Group) ([]string, error) {
	s, err := r.discover(ctx, group)
	if err != nil {
		return nil, err
	}
	return sets.List(s), nil
}

func (r *EntityRouter) discover(ctx context.Context, group Group) (sets.Set[string], error) {
	if s, ok := r.supported[group.Name]; ok {
		return s, nil
	}

	names, err := r.transport.Discover(ctx, group.Path)
	if err != nil {
		r.log.WithError(err).WithField("group", group.Name).Error("Discovery failed")
		return nil, err
	}

	s := sets.New[string]()
	for _, name := range names {
		// sub-resources such as pods/log
		if strings.Contains(name, "/") {
			continue
		}
		s.Insert(name)
	}
	r.supported[group.Name] = s

	r.log.WithFields(logrus.Fields{"group": group.Name, "kinds": s.Len()}).Debug("Discovered API group")
	return s, nil
}

package openshift

import (
	"context"
	"strings"
)

// Kind names a REST collection, e.g. "deploymentconfigs"
type Kind string

const (
	KindProject               Kind = "projects"
	KindPod                   Kind = "pods"
	KindDeploymentConfig      Kind = "deploymentconfigs"
	KindReplicationController Kind = "replicationcontrollers"
	KindService               Kind = "services"
	KindRoute                 Kind = "routes"
	KindSecret                Kind = "secrets"
	KindConfigMap             Kind = "configmaps"
	KindTemplate              Kind = "templates"
	KindRoleBinding           Kind = "rolebindings"
)

// CommandName is the singular form oc accepts, e.g. "deploymentconfig"
func (k Kind) CommandName() string {
	return strings.TrimSuffix(string(k), "s")
}

// Kinds lists every modeled kind
func Kinds() []Kind {
	return []Kind{
		KindProject,
		KindPod,
		KindDeploymentConfig,
		KindReplicationController,
		KindService,
		KindRoute,
		KindSecret,
		KindConfigMap,
		KindTemplate,
		KindRoleBinding,
	}
}

// ParseKind accepts plural, singular and common oc short names
func ParseKind(s string) (Kind, bool) {
	s = strings.ToLower(s)
	aliases := map[string]Kind{
		"dc":  KindDeploymentConfig,
		"rc":  KindReplicationController,
		"svc": KindService,
		"cm":  KindConfigMap,
		"po":  KindPod,
	}
	if k, ok := aliases[s]; ok {
		return k, true
	}
	for _, k := range Kinds() {
		if s == string(k) || s == k.CommandName() {
			return k, true
		}
	}
	return "", false
}

// constructors wraps fetched objects into their kind-specific type. Kinds
// without an entry stay plain *Object.
var constructors = map[Kind]func(*Object) Resource{
	KindProject:               func(o *Object) Resource { return &Project{Object: o} },
	KindPod:                   func(o *Object) Resource { return newPod(o) },
	KindDeploymentConfig:      func(o *Object) Resource { return newDeploymentConfig(o) },
	KindReplicationController: func(o *Object) Resource { return &ReplicationController{Object: o} },
	KindService:               func(o *Object) Resource { return &Service{Object: o} },
	KindRoute:                 func(o *Object) Resource { return &Route{Object: o} },
	KindSecret:                func(o *Object) Resource { return &Secret{Object: o} },
	KindConfigMap:             func(o *Object) Resource { return &ConfigMap{Object: o} },
	KindTemplate:              func(o *Object) Resource { return &Template{Object: o} },
	KindRoleBinding:           func(o *Object) Resource { return &RoleBinding{Object: o} },
}

func wrap(o *Object) Resource {
	if ctor, ok := constructors[o.kind]; ok {
		return ctor(o)
	}
	return o
}

// accessor is a lazily cached, typed collection of one kind under a scope
type accessor[T Resource] struct {
	kind Kind
}

func (a accessor[T]) list(ctx context.Context, cache *ResourceCache, scope Scope, force bool) (map[string]T, error) {
	all, err := cache.Get(ctx, a.kind, scope, force)
	if err != nil {
		return nil, err
	}
	return typed[T](all), nil
}

func typed[T Resource](all map[string]Resource) map[string]T {
	out := make(map[string]T, len(all))
	for name, r := range all {
		if t, ok := r.(T); ok {
			out[name] = t
		}
	}
	return out
}

// Accessors available on a Project
var (
	podsAccessor                   = accessor[*Pod]{KindPod}
	deploymentConfigsAccessor      = accessor[*DeploymentConfig]{KindDeploymentConfig}
	replicationControllersAccessor = accessor[*ReplicationController]{KindReplicationController}
	servicesAccessor               = accessor[*Service]{KindService}
	routesAccessor                 = accessor[*Route]{KindRoute}
	secretsAccessor                = accessor[*Secret]{KindSecret}
	configMapsAccessor             = accessor[*ConfigMap]{KindConfigMap}
	templatesAccessor              = accessor[*Template]{KindTemplate}
	roleBindingsAccessor           = accessor[*RoleBinding]{KindRoleBinding}
	projectsAccessor               = accessor[*Project]{KindProject}
)

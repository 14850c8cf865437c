package openshift

import (
	"context"

	"github.com/tapcraft-io/shift/internal/exec"
)

// Project is the root scope of one namespace
type Project struct {
	*Object
}

// Namespace is the project's own name
func (p *Project) Namespace() string {
	return p.Name()
}

// Execute runs cmd inside the project
func (p *Project) Execute(ctx context.Context, cmd exec.Command) error {
	return p.client.Execute(ctx, cmd.With(exec.Options{"namespace": p.Name()}))
}

// DisplayName returns the openshift.io/display-name annotation
func (p *Project) DisplayName() string {
	return p.Metadata().Annotation("openshift.io/display-name")
}

func (p *Project) Phase() string {
	return p.String("status", "phase")
}

func (p *Project) Pods(ctx context.Context, force bool) (map[string]*Pod, error) {
	return podsAccessor.list(ctx, p.client.cache, p, force)
}

func (p *Project) DeploymentConfigs(ctx context.Context, force bool) (map[string]*DeploymentConfig, error) {
	return deploymentConfigsAccessor.list(ctx, p.client.cache, p, force)
}

func (p *Project) ReplicationControllers(ctx context.Context, force bool) (map[string]*ReplicationController, error) {
	return replicationControllersAccessor.list(ctx, p.client.cache, p, force)
}

func (p *Project) Secrets(ctx context.Context, force bool) (map[string]*Secret, error) {
	return secretsAccessor.list(ctx, p.client.cache, p, force)
}

func (p *Project) Services(ctx context.Context, force bool) (map[string]*Service, error) {
	return servicesAccessor.list(ctx, p.client.cache, p, force)
}

func (p *Project) Routes(ctx context.Context, force bool) (map[string]*Route, error) {
	return routesAccessor.list(ctx, p.client.cache, p, force)
}

func (p *Project) ConfigMaps(ctx context.Context, force bool) (map[string]*ConfigMap, error) {
	return configMapsAccessor.list(ctx, p.client.cache, p, force)
}

func (p *Project) Templates(ctx context.Context, force bool) (map[string]*Template, error) {
	return templatesAccessor.list(ctx, p.client.cache, p, force)
}

func (p *Project) RoleBindings(ctx context.Context, force bool) (map[string]*RoleBinding, error) {
	return roleBindingsAccessor.list(ctx, p.client.cache, p, force)
}

// Resources returns the collection of any kind, e.g. for generic listing
func (p *Project) Resources(ctx context.Context, kind Kind, force bool) (map[string]Resource, error) {
	return p.client.cache.Get(ctx, kind, p, force)
}

func (p *Project) create(ctx context.Context, cmd exec.Command, kind Kind) error {
	if err := p.Execute(ctx, cmd); err != nil {
		return err
	}
	p.InvalidateKind(kind)
	return nil
}

// CreateSecret runs oc create secret <type> <name>, e.g. type "generic"
// with opts {"from-literal": []string{"user=admin"}}
func (p *Project) CreateSecret(ctx context.Context, name, secretType string, opts exec.Options) error {
	return p.create(ctx, exec.NewCommand("create secret", secretType, name).With(opts), KindSecret)
}

// CreateConfigMap runs oc create configmap <name> --<source>=<path>, where
// source is e.g. "from-file" or "from-literal"
func (p *Project) CreateConfigMap(ctx context.Context, name, source, path string, opts exec.Options) error {
	cmd := exec.NewCommand("create configmap", name).With(exec.Options{source: path}).With(opts)
	return p.create(ctx, cmd, KindConfigMap)
}

// CreateService runs oc create service <type> <name>
func (p *Project) CreateService(ctx context.Context, name, serviceType string, opts exec.Options) error {
	return p.create(ctx, exec.NewCommand("create service", serviceType, name).With(opts), KindService)
}

// CreateTemplate uploads a template definition file
func (p *Project) CreateTemplate(ctx context.Context, file string) error {
	return p.create(ctx, exec.NewCommand("create").With(exec.Options{"filename": file}), KindTemplate)
}

func (p *Project) AddRoleToUser(ctx context.Context, role, user string) error {
	return p.create(ctx, exec.NewCommand("policy add-role-to-user", role, user), KindRoleBinding)
}

func (p *Project) AddRoleToGroup(ctx context.Context, role, group string) error {
	return p.create(ctx, exec.NewCommand("policy add-role-to-group", role, group), KindRoleBinding)
}

// Delete removes the project and everything cached under it. With
// opts.Block it waits until the project is no longer listed.
func (p *Project) Delete(ctx context.Context, opts WaitOptions) error {
	if err := p.Object.Delete(ctx); err != nil {
		return err
	}
	p.Invalidate()

	if !opts.Block {
		return nil
	}
	return p.client.WaitProjectDeletion(ctx, p.Name(), opts)
}

// WaitForDeployments blocks until no deployment config of the project has a
// running deployment
func (p *Project) WaitForDeployments(ctx context.Context, opts WaitOptions) error {
	return p.client.await(ctx, "deployments in "+p.Name(), opts, func(ctx context.Context) (bool, error) {
		running, err := p.anyDeploymentRunning(ctx)
		return !running, err
	})
}

func (p *Project) anyDeploymentRunning(ctx context.Context) (bool, error) {
	dcs, err := p.DeploymentConfigs(ctx, true)
	if err != nil {
		return false, err
	}
	for _, dc := range dcs {
		running, err := dc.Running(ctx, true)
		if err != nil {
			return false, err
		}
		if running {
			return true, nil
		}
	}
	return false, nil
}

// NewApp runs oc new-app --<source>=<path>. The project's caches are dropped
// afterwards since new-app creates objects of many kinds.
func (p *Project) NewApp(ctx context.Context, source, path string, wait WaitOptions, opts exec.Options) error {
	cmd := exec.NewCommand("new-app").With(exec.Options{source: path}).With(opts)
	if err := p.Execute(ctx, cmd); err != nil {
		return err
	}
	p.Invalidate()

	if !wait.Block {
		return nil
	}
	defer p.Invalidate()
	return p.WaitForDeployments(ctx, wait)
}

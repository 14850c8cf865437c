package openshift

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"

	"github.com/tapcraft-io/shift/internal/exec"
)

const (
	annotationDeploymentConfigName = "openshift.io/deployment-config.name"
	annotationDeploymentVersion    = "openshift.io/deployment-config.latest-version"
)

// DeploymentConfig owns the replication controllers of its rollouts
type DeploymentConfig struct {
	*Object

	env map[string]map[string]string
}

func newDeploymentConfig(o *Object) *DeploymentConfig {
	dc := &DeploymentConfig{Object: o}
	o.onInvalidate(func() { dc.env = nil })
	return dc
}

// Replicas is the desired replica count
func (dc *DeploymentConfig) Replicas() int64 {
	n, _ := dc.Int64("spec", "replicas")
	return n
}

// LatestVersion is status.latestVersion
func (dc *DeploymentConfig) LatestVersion() int64 {
	n, _ := dc.Int64("status", "latestVersion")
	return n
}

// Deployments returns the project's replication controllers created for
// this deployment config
func (dc *DeploymentConfig) Deployments(ctx context.Context, force bool) (map[string]*ReplicationController, error) {
	name := dc.Name()
	load := dc.client.derived(func(u *unstructured.Unstructured) bool {
		return u.GetAnnotations()[annotationDeploymentConfigName] == name
	})
	all, err := dc.client.cache.GetWith(ctx, KindReplicationController, dc, force, load)
	if err != nil {
		return nil, err
	}
	return typed[*ReplicationController](all), nil
}

// LatestDeployment returns the replication controller with the highest
// version, or nil when there is none
func (dc *DeploymentConfig) LatestDeployment(ctx context.Context, force bool) (*ReplicationController, error) {
	rcs, err := dc.Deployments(ctx, force)
	if err != nil {
		return nil, err
	}
	var latest *ReplicationController
	for _, rc := range rcs {
		if latest == nil || rc.Version() > latest.Version() {
			latest = rc
		}
	}
	return latest, nil
}

// Running reports whether any deployment is running or pending. With reload
// the deployments are fetched again first.
func (dc *DeploymentConfig) Running(ctx context.Context, reload bool) (bool, error) {
	rcs, err := dc.Deployments(ctx, reload)
	if err != nil {
		return false, err
	}
	for _, rc := range rcs {
		if rc.IsRunning() {
			return true, nil
		}
	}
	return false, nil
}

// Scaled reports whether the latest deployment has reached replicas
func (dc *DeploymentConfig) Scaled(ctx context.Context, replicas int64) (bool, error) {
	latest, err := dc.LatestDeployment(ctx, true)
	if err != nil {
		return false, err
	}
	if latest == nil {
		return false, nil
	}
	return latest.IsScaled(replicas), nil
}

// Scale sets the replica count. With opts.Block it waits until the latest
// deployment reports the new count.
func (dc *DeploymentConfig) Scale(ctx context.Context, replicas int64, opts WaitOptions) error {
	cmd := exec.NewCommand("scale", "dc", dc.Name()).With(exec.Options{"replicas": replicas})
	if err := dc.Execute(ctx, cmd); err != nil {
		return err
	}
	dc.parent.InvalidateKind(KindDeploymentConfig)
	dc.Invalidate()

	if !opts.Block {
		return nil
	}
	description := fmt.Sprintf("dc/%s to scale to %d", dc.Name(), replicas)
	return dc.client.await(ctx, description, opts, func(ctx context.Context) (bool, error) {
		return dc.Scaled(ctx, replicas)
	})
}

// StartDeployment triggers a new rollout. With opts.Block it waits until the
// new deployment exists and no deployment is running.
func (dc *DeploymentConfig) StartDeployment(ctx context.Context, opts WaitOptions) error {
	if err := dc.Execute(ctx, exec.NewCommand("rollout latest", "dc/"+dc.Name())); err != nil {
		return err
	}
	dc.parent.InvalidateKind(KindDeploymentConfig)
	dc.Invalidate()

	if !opts.Block {
		return nil
	}
	return dc.client.await(ctx, "rollout of dc/"+dc.Name(), opts, func(ctx context.Context) (bool, error) {
		if err := dc.Reload(ctx, true); err != nil {
			return false, err
		}
		latest, err := dc.LatestDeployment(ctx, true)
		if err != nil || latest == nil {
			return false, err
		}
		if latest.Version() < dc.LatestVersion() {
			return false, nil
		}
		running, err := dc.Running(ctx, false)
		return !running, err
	})
}

// WaitForDeployments blocks until no deployment is running
func (dc *DeploymentConfig) WaitForDeployments(ctx context.Context, opts WaitOptions) error {
	return dc.client.await(ctx, "deployments of dc/"+dc.Name(), opts, func(ctx context.Context) (bool, error) {
		running, err := dc.Running(ctx, true)
		return !running, err
	})
}

func (dc *DeploymentConfig) podSpec() (corev1.PodSpec, error) {
	var spec corev1.PodSpec
	raw, found, err := unstructured.NestedMap(dc.obj.Object, "spec", "template", "spec")
	if err != nil || !found {
		return spec, err
	}
	if err := runtime.DefaultUnstructuredConverter.FromUnstructured(raw, &spec); err != nil {
		return spec, fmt.Errorf("failed to convert pod template of dc/%s: %w", dc.Name(), err)
	}
	return spec, nil
}

// container returns the named container, or the first one when name is ""
func container(spec corev1.PodSpec, name string) (int, error) {
	if len(spec.Containers) == 0 {
		return -1, fmt.Errorf("pod template has no containers")
	}
	if name == "" {
		return 0, nil
	}
	for i, c := range spec.Containers {
		if c.Name == name {
			return i, nil
		}
	}
	return -1, fmt.Errorf("container %q not found", name)
}

// Containers lists the pod template's container names
func (dc *DeploymentConfig) Containers() ([]string, error) {
	spec, err := dc.podSpec()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(spec.Containers))
	for _, c := range spec.Containers {
		names = append(names, c.Name)
	}
	return names, nil
}

// EnvVariables returns a container's environment with config map and secret
// references resolved. Missing references resolve to "".
func (dc *DeploymentConfig) EnvVariables(ctx context.Context, containerName string) (map[string]string, error) {
	if env, ok := dc.env[containerName]; ok {
		return env, nil
	}

	spec, err := dc.podSpec()
	if err != nil {
		return nil, err
	}
	i, err := container(spec, containerName)
	if err != nil {
		return nil, fmt.Errorf("dc/%s: %w", dc.Name(), err)
	}

	env := make(map[string]string, len(spec.Containers[i].Env))
	for _, v := range spec.Containers[i].Env {
		value, err := dc.resolveEnv(ctx, v)
		if err != nil {
			return nil, err
		}
		env[v.Name] = value
	}

	if dc.env == nil {
		dc.env = map[string]map[string]string{}
	}
	dc.env[containerName] = env
	return env, nil
}

func (dc *DeploymentConfig) resolveEnv(ctx context.Context, v corev1.EnvVar) (string, error) {
	if v.ValueFrom == nil {
		return v.Value, nil
	}
	project, ok := dc.parent.(*Project)
	if !ok {
		return "", nil
	}

	switch {
	case v.ValueFrom.ConfigMapKeyRef != nil:
		ref := v.ValueFrom.ConfigMapKeyRef
		cms, err := project.ConfigMaps(ctx, false)
		if err != nil {
			return "", err
		}
		if cm, ok := cms[ref.Name]; ok {
			value, _ := cm.Get(ref.Key)
			return value, nil
		}
	case v.ValueFrom.SecretKeyRef != nil:
		ref := v.ValueFrom.SecretKeyRef
		secrets, err := project.Secrets(ctx, false)
		if err != nil {
			return "", err
		}
		if secret, ok := secrets[ref.Name]; ok {
			value, _, err := secret.Get(ref.Key)
			return value, err
		}
	}
	return "", nil
}

// SetEnvVariables sets or, for nil values, unsets environment variables on
// a container. The object is reloaded afterwards.
func (dc *DeploymentConfig) SetEnvVariables(ctx context.Context, containerName string, env map[string]*string, opts WaitOptions) error {
	if containerName == "" {
		names, err := dc.Containers()
		if err != nil {
			return err
		}
		if len(names) == 0 {
			return fmt.Errorf("dc/%s has no containers", dc.Name())
		}
		containerName = names[0]
	}

	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	args := []string{"dc/" + dc.Name()}
	for _, k := range keys {
		if env[k] == nil {
			args = append(args, k+"-")
		} else {
			args = append(args, k+"="+*env[k])
		}
	}

	cmd := exec.NewCommand("set env", args...).With(exec.Options{"containers": containerName})
	if err := dc.Execute(ctx, cmd); err != nil {
		return err
	}

	if opts.Block {
		if err := dc.WaitForDeployments(ctx, opts); err != nil {
			return err
		}
	}
	return dc.Reload(ctx, false)
}

// Volumes returns the pod template's volumes
func (dc *DeploymentConfig) Volumes() ([]corev1.Volume, error) {
	spec, err := dc.podSpec()
	if err != nil {
		return nil, err
	}
	return spec.Volumes, nil
}

// AddVolume adds a volume to the pod template, mounts it into a container
// and pushes the whole object with Update
func (dc *DeploymentConfig) AddVolume(ctx context.Context, volume corev1.Volume, mount corev1.VolumeMount, containerName string) error {
	spec, err := dc.podSpec()
	if err != nil {
		return err
	}
	i, err := container(spec, containerName)
	if err != nil {
		return fmt.Errorf("dc/%s: %w", dc.Name(), err)
	}

	spec.Volumes = append(spec.Volumes, volume)
	spec.Containers[i].VolumeMounts = append(spec.Containers[i].VolumeMounts, mount)

	raw, err := runtime.DefaultUnstructuredConverter.ToUnstructured(&spec)
	if err != nil {
		return fmt.Errorf("failed to convert pod template of dc/%s: %w", dc.Name(), err)
	}
	if err := unstructured.SetNestedField(dc.obj.Object, raw, "spec", "template", "spec"); err != nil {
		return err
	}
	return dc.Update(ctx, nil)
}

func parseVersion(s string) int64 {
	n, _ := strconv.ParseInt(s, 10, 64)
	return n
}

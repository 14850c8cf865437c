package openshift

import (
	"context"

	"github.com/tapcraft-io/shift/internal/exec"
)

type Pod struct {
	*Object

	logs   string
	hasLog bool
}

func newPod(o *Object) *Pod {
	p := &Pod{Object: o}
	o.onInvalidate(func() { p.logs, p.hasLog = "", false })
	return p
}

func (p *Pod) Phase() string {
	return p.String("status", "phase")
}

// Containers lists the pod's container names
func (p *Pod) Containers() []string {
	v, _ := p.Field("spec", "containers")
	items, _ := v.([]any)
	names := make([]string, 0, len(items))
	for _, item := range items {
		if m, ok := item.(map[string]any); ok {
			if name, ok := m["name"].(string); ok {
				names = append(names, name)
			}
		}
	}
	return names
}

// Logs returns the pod's log, read once and kept until force or a reload
func (p *Pod) Logs(ctx context.Context, force bool) (string, error) {
	if p.hasLog && !force {
		return p.logs, nil
	}

	path, err := p.client.objectPath(ctx, KindPod, p.Namespace(), p.Name())
	if err != nil {
		return "", err
	}
	body, err := p.client.read(ctx, path+"/log")
	if err != nil {
		return "", err
	}

	p.logs, p.hasLog = string(body), true
	return p.logs, nil
}

// Rsync copies files between local and podPath. The direction is from the
// pod unless toPod is set.
func (p *Pod) Rsync(ctx context.Context, local, podPath string, toPod bool, opts exec.Options) error {
	remote := p.Name() + ":" + podPath
	src, dst := remote, local
	if toPod {
		src, dst = local, remote
	}
	return p.Execute(ctx, exec.NewCommand("rsync", src, dst).With(opts))
}

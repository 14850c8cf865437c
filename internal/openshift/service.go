package openshift

import (
	"context"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	"github.com/tapcraft-io/shift/internal/exec"
)

type Service struct {
	*Object
}

func (s *Service) Type() string {
	return s.String("spec", "type")
}

func (s *Service) ClusterIP() string {
	return s.String("spec", "clusterIP")
}

// Routes returns the project's routes pointing at this service
func (s *Service) Routes(ctx context.Context, force bool) (map[string]*Route, error) {
	name := s.Name()
	load := s.client.derived(func(u *unstructured.Unstructured) bool {
		target, _, _ := unstructured.NestedString(u.Object, "spec", "to", "name")
		return target == name
	})
	all, err := s.client.cache.GetWith(ctx, KindRoute, s, force, load)
	if err != nil {
		return nil, err
	}
	return typed[*Route](all), nil
}

// CreateRoute exposes the service. A termination such as "edge" creates a
// secured route; an empty termination uses oc expose.
func (s *Service) CreateRoute(ctx context.Context, name, termination string, opts exec.Options) error {
	var cmd exec.Command
	if termination != "" {
		cmd = exec.NewCommand("create route", termination, name).With(exec.Options{"service": s.Name()})
	} else {
		cmd = exec.NewCommand("expose service", s.Name()).With(exec.Options{"name": name})
	}
	if err := s.Execute(ctx, cmd.With(opts)); err != nil {
		return err
	}

	s.parent.InvalidateKind(KindRoute)
	s.InvalidateKind(KindRoute)
	return nil
}

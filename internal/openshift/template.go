package openshift

import (
	"context"

	"github.com/tapcraft-io/shift/internal/exec"
)

type Template struct {
	*Object
}

// Parameters lists the parameter names the template declares
func (t *Template) Parameters() []string {
	v, _ := t.Field("parameters")
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

// Process instantiates the template. Everything cached for the project is
// dropped since the template may create objects of any kind.
func (t *Template) Process(ctx context.Context, params map[string]string, opts exec.Options) error {
	cmd := exec.NewCommand("process", t.Name()).With(exec.Options{"param": params}).With(opts)
	if err := t.Execute(ctx, cmd); err != nil {
		return err
	}
	t.parent.Invalidate()
	return nil
}

package openshift

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	"github.com/tapcraft-io/shift/internal/exec"
)

// Scope owns cached collections and forwards commands towards the session.
// The client, projects and objects with derived collections are scopes.
type Scope interface {
	// ScopeKey identifies the scope in the cache. Child keys extend their
	// parent's key.
	ScopeKey() string
	// Namespace is the project commands issued through this scope run in
	Namespace() string
	Execute(ctx context.Context, cmd exec.Command) error
	InvalidateKind(kind Kind)
	Invalidate()
}

// Resource is implemented by *Object and every kind-specific type
type Resource interface {
	Base() *Object
}

// Object is a cluster object backed by its raw API payload
type Object struct {
	client *Client
	parent Scope
	kind   Kind
	obj    *unstructured.Unstructured
	id     uint64

	resets []func()
}

func (c *Client) newObject(parent Scope, kind Kind, u *unstructured.Unstructured) *Object {
	c.seq++
	return &Object{
		client: c,
		parent: parent,
		kind:   kind,
		obj:    u,
		id:     c.seq,
	}
}

func (o *Object) Base() *Object { return o }

func (o *Object) Name() string { return o.obj.GetName() }

func (o *Object) Kind() Kind { return o.kind }

func (o *Object) Parent() Scope { return o.parent }

// Raw returns the payload. Callers mutating it should follow with Update.
func (o *Object) Raw() *unstructured.Unstructured { return o.obj }

func (o *Object) Metadata() Metadata { return newMetadata(o.obj) }

// Field looks up a nested payload field, e.g. Field("spec", "replicas")
func (o *Object) Field(path ...string) (any, bool) {
	v, found, err := unstructured.NestedFieldNoCopy(o.obj.Object, path...)
	if err != nil || !found {
		return nil, false
	}
	return v, true
}

func (o *Object) Has(path ...string) bool {
	_, ok := o.Field(path...)
	return ok
}

// String returns a string field or ""
func (o *Object) String(path ...string) string {
	v, _ := o.Field(path...)
	s, _ := v.(string)
	return s
}

// Int64 returns an integer field
func (o *Object) Int64(path ...string) (int64, bool) {
	v, ok := o.Field(path...)
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case float64:
		return int64(n), true
	}
	return 0, false
}

func (o *Object) ScopeKey() string {
	return fmt.Sprintf("%s/%s/%s#%d", o.parent.ScopeKey(), o.kind, o.Name(), o.id)
}

func (o *Object) Namespace() string {
	if ns := o.obj.GetNamespace(); ns != "" {
		return ns
	}
	return o.parent.Namespace()
}

func (o *Object) Execute(ctx context.Context, cmd exec.Command) error {
	return o.parent.Execute(ctx, cmd)
}

func (o *Object) InvalidateKind(kind Kind) {
	o.client.cache.InvalidateKind(o, kind)
}

// Invalidate drops the collections derived from this object and any
// object-local caches
func (o *Object) Invalidate() {
	o.client.cache.Invalidate(o)
	for _, reset := range o.resets {
		reset()
	}
}

func (o *Object) onInvalidate(reset func()) {
	o.resets = append(o.resets, reset)
}

func (o *Object) logger() logrus.FieldLogger {
	return o.client.log.WithFields(logrus.Fields{"component": o.kind.CommandName(), "name": o.Name()})
}

// Reload fetches the object again and replaces its payload. Unless selfOnly
// is set, derived collections and object-local caches are dropped too.
func (o *Object) Reload(ctx context.Context, selfOnly bool) error {
	link := o.obj.GetSelfLink()
	if link == "" {
		var err error
		link, err = o.client.objectPath(ctx, o.kind, o.Namespace(), o.Name())
		if err != nil {
			return err
		}
	}

	u, err := o.client.ReadLink(ctx, link)
	if err != nil {
		o.logger().WithError(err).Warn("Failed to reload")
		return err
	}
	o.obj = u

	if !selfOnly {
		o.Invalidate()
	}
	return nil
}

// Update patches the object through oc. A nil patch sends the whole
// payload. The parent's collection of this kind is invalidated; the object
// itself is not reloaded.
func (o *Object) Update(ctx context.Context, patch []byte) error {
	if patch == nil {
		var err error
		patch, err = o.obj.MarshalJSON()
		if err != nil {
			return fmt.Errorf("failed to encode %s/%s: %w", o.kind.CommandName(), o.Name(), err)
		}
	}

	cmd := exec.NewCommand("patch", o.kind.CommandName(), o.Name()).
		With(exec.Options{"patch": string(patch)})
	if err := o.Execute(ctx, cmd); err != nil {
		return err
	}

	o.parent.InvalidateKind(o.kind)
	return nil
}

// Delete removes the object. It should not be used afterwards.
func (o *Object) Delete(ctx context.Context) error {
	if err := o.Execute(ctx, exec.NewCommand("delete", o.kind.CommandName(), o.Name())); err != nil {
		return err
	}
	o.parent.InvalidateKind(o.kind)
	return nil
}

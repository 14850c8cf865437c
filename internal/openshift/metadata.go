package openshift

import "k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

// Metadata is a snapshot of an object's metadata block. It is not updated
// until the owning object is reloaded.
type Metadata struct {
	Name        string
	Namespace   string
	SelfLink    string
	Labels      map[string]string
	Annotations map[string]string

	raw map[string]any
}

func newMetadata(u *unstructured.Unstructured) Metadata {
	raw, _, _ := unstructured.NestedMap(u.Object, "metadata")
	labels := u.GetLabels()
	if labels == nil {
		labels = map[string]string{}
	}
	annotations := u.GetAnnotations()
	if annotations == nil {
		annotations = map[string]string{}
	}
	return Metadata{
		Name:        u.GetName(),
		Namespace:   u.GetNamespace(),
		SelfLink:    u.GetSelfLink(),
		Labels:      labels,
		Annotations: annotations,
		raw:         raw,
	}
}

// Field returns any other metadata key, e.g. "uid" or "resourceVersion"
func (m Metadata) Field(key string) (any, bool) {
	v, ok := m.raw[key]
	return v, ok
}

// Annotation returns the annotation value or ""
func (m Metadata) Annotation(key string) string {
	return m.Annotations[key]
}

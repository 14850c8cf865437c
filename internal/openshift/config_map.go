package openshift

import (
	"fmt"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
)

type ConfigMap struct {
	*Object
}

func (cm *ConfigMap) Get(key string) (string, bool) {
	v, found, err := unstructured.NestedString(cm.obj.Object, "data", key)
	if err != nil {
		return "", false
	}
	return v, found
}

// Set stores value under key in the local payload. Use Update to push it.
// It fails when data is present but not a map.
func (cm *ConfigMap) Set(key, value string) error {
	if err := unstructured.SetNestedField(cm.obj.Object, value, "data", key); err != nil {
		return fmt.Errorf("configmap %s key %q: %w", cm.Name(), key, err)
	}
	return nil
}

func (cm *ConfigMap) Data() map[string]string {
	data, _, _ := unstructured.NestedStringMap(cm.obj.Object, "data")
	if data == nil {
		data = map[string]string{}
	}
	return data
}

package openshift

import (
	"encoding/base64"
	"fmt"
	"sort"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
)

// Secret values are stored base64 encoded in the payload and exposed
// decoded
type Secret struct {
	*Object
}

func (s *Secret) Type() string {
	return s.String("type")
}

// Keys returns the data keys in sorted order
func (s *Secret) Keys() []string {
	data, _, _ := unstructured.NestedMap(s.obj.Object, "data")
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Get returns the decoded value of key
func (s *Secret) Get(key string) (string, bool, error) {
	encoded, found, err := unstructured.NestedString(s.obj.Object, "data", key)
	if err != nil || !found {
		return "", false, err
	}
	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", true, fmt.Errorf("secret %s key %q: %w", s.Name(), key, err)
	}
	return string(decoded), true, nil
}

// Set stores value under key in the local payload. Use Update to push it.
func (s *Secret) Set(key, value string) error {
	encoded := base64.StdEncoding.EncodeToString([]byte(value))
	if err := unstructured.SetNestedField(s.obj.Object, encoded, "data", key); err != nil {
		return fmt.Errorf("secret %s key %q: %w", s.Name(), key, err)
	}
	return nil
}

// Data returns every decoded value
func (s *Secret) Data() (map[string]string, error) {
	keys := s.Keys()
	out := make(map[string]string, len(keys))
	for _, k := range keys {
		v, _, err := s.Get(k)
		if err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, nil
}

package openshift

type RoleBinding struct {
	*Object
}

func (rb *RoleBinding) RoleName() string {
	return rb.String("roleRef", "name")
}

// Subjects returns "<kind>:<name>" for every subject, e.g. "User:alice"
func (rb *RoleBinding) Subjects() []string {
	v, _ := rb.Field("subjects")
	items, _ := v.([]any)
	subjects := make([]string, 0, len(items))
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		kind, _ := m["kind"].(string)
		name, _ := m["name"].(string)
		subjects = append(subjects, kind+":"+name)
	}
	return subjects
}

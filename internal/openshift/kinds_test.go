package openshift

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	"github.com/tapcraft-io/shift/internal/exec"
	"github.com/tapcraft-io/shift/internal/fakecluster"
)

func TestObject_FieldAccess(t *testing.T) {
	env := newTestEnv(t)
	env.cluster.Add("pods", testProject, "web-1-abcde", map[string]any{
		"kind": "Pod",
		"metadata": map[string]any{
			"labels": map[string]any{"app": "web"},
			"uid":    "1234",
		},
		"spec": map[string]any{
			"containers": []any{map[string]any{"name": "app"}, map[string]any{"name": "proxy"}},
		},
		"status": map[string]any{"phase": "Running", "restarts": int64(2)},
	})
	pods, err := env.project(t).Pods(context.Background(), false)
	require.NoError(t, err)
	pod := pods["web-1-abcde"]

	assert.Equal(t, KindPod, pod.Kind())
	assert.Equal(t, "Running", pod.Phase())
	assert.Equal(t, []string{"app", "proxy"}, pod.Containers())
	assert.True(t, pod.Has("status", "phase"))
	assert.False(t, pod.Has("status", "podIP"))
	assert.Equal(t, "", pod.String("status", "podIP"))

	restarts, ok := pod.Int64("status", "restarts")
	assert.True(t, ok)
	assert.EqualValues(t, 2, restarts)

	meta := pod.Metadata()
	assert.Equal(t, testProject, meta.Namespace)
	assert.Equal(t, map[string]string{"app": "web"}, meta.Labels)
	assert.NotNil(t, meta.Annotations)
	uid, ok := meta.Field("uid")
	assert.True(t, ok)
	assert.Equal(t, "1234", uid)
}

func TestObject_ReloadUsesSelfLink(t *testing.T) {
	env := newTestEnv(t)
	env.cluster.Add("configmaps", testProject, "settings", map[string]any{
		"metadata": map[string]any{"selfLink": "/api/v1/namespaces/demo/configmaps/settings"},
		"data":     map[string]any{"a": "1"},
	})
	cms, err := env.project(t).ConfigMaps(context.Background(), false)
	require.NoError(t, err)
	cm := cms["settings"]

	env.cluster.Mutate("configmaps", testProject, "settings", func(obj map[string]any) {
		obj["data"] = map[string]any{"a": "2"}
	})
	require.NoError(t, cm.Reload(context.Background(), true))

	value, ok := cm.Get("a")
	assert.True(t, ok)
	assert.Equal(t, "2", value)
	assert.Equal(t, 1, env.cluster.Reads("/api/v1/namespaces/demo/configmaps/settings"))
}

func TestObject_ReloadErrorKeepsPayload(t *testing.T) {
	env := newTestEnv(t)
	env.cluster.Add("configmaps", testProject, "settings", map[string]any{"data": map[string]any{"a": "1"}})
	cms, err := env.project(t).ConfigMaps(context.Background(), false)
	require.NoError(t, err)
	cm := cms["settings"]

	env.cluster.Remove("configmaps", testProject, "settings")
	assert.Error(t, cm.Reload(context.Background(), false))
	assert.Equal(t, map[string]string{"a": "1"}, cm.Data())
}

func TestConfigMap_SetAndUpdate(t *testing.T) {
	env := newTestEnv(t)
	env.cluster.Add("configmaps", testProject, "settings", map[string]any{"data": map[string]any{"a": "1"}})
	cms, err := env.project(t).ConfigMaps(context.Background(), false)
	require.NoError(t, err)
	cm := cms["settings"]

	require.NoError(t, cm.Set("b", "2"))
	require.NoError(t, cm.Update(context.Background(), nil))

	stored, ok := env.cluster.Object("configmaps", testProject, "settings")
	require.True(t, ok)
	assert.Equal(t, map[string]any{"a": "1", "b": "2"}, stored["data"])
}

func TestSecret_Accessors(t *testing.T) {
	s := &Secret{Object: &Object{obj: &unstructured.Unstructured{Object: map[string]any{
		"type": "kubernetes.io/basic-auth",
		"data": map[string]any{"username": "YWRtaW4=", "password": "czNjcjN0", "broken": "%%%"},
	}}}}

	assert.Equal(t, "kubernetes.io/basic-auth", s.Type())
	assert.Equal(t, []string{"broken", "password", "username"}, s.Keys())

	value, ok, err := s.Get("username")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "admin", value)

	_, ok, err = s.Get("missing")
	assert.NoError(t, err)
	assert.False(t, ok)

	_, _, err = s.Get("broken")
	assert.Error(t, err)
}

func TestSetRejectsMalformedData(t *testing.T) {
	payload := func() *Object {
		return &Object{obj: &unstructured.Unstructured{Object: map[string]any{
			"metadata": map[string]any{"name": "broken"},
			"data":     "not-a-map",
		}}}
	}

	cm := &ConfigMap{Object: payload()}
	assert.Error(t, cm.Set("a", "1"))

	s := &Secret{Object: payload()}
	assert.Error(t, s.Set("a", "1"))
	assert.Equal(t, "not-a-map", s.obj.Object["data"])
}

func TestRoute_Address(t *testing.T) {
	tests := []struct {
		name        string
		host        string
		termination string
		expected    string
	}{
		{"plain", "web.apps.example", "", "http://web.apps.example"},
		{"edge", "web.apps.example", "edge", "https://web.apps.example"},
		{"trailing slash", "web.apps.example/", "passthrough", "https://web.apps.example"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &Route{Object: &Object{obj: &unstructured.Unstructured{Object: route("web", tt.host, tt.termination)}}}
			assert.Equal(t, tt.expected, r.Address())
			assert.Equal(t, "web", r.ServiceName())
			assert.Equal(t, tt.termination, r.Termination())
		})
	}
}

func TestService_CreateRoute(t *testing.T) {
	tests := []struct {
		name        string
		termination string
		args        []string
		flag        string
		value       string
	}{
		{"secured", "edge", []string{"create", "route", "edge", "web-tls"}, "service", "web"},
		{"exposed", "", []string{"expose", "service", "web"}, "name", "web-tls"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.cluster.Add("services", testProject, "web", map[string]any{"kind": "Service"})
			project := env.project(t)
			ctx := context.Background()

			services, err := project.Services(ctx, false)
			require.NoError(t, err)
			svc := services["web"]
			_, err = svc.Routes(ctx, false)
			require.NoError(t, err)
			_, err = project.Routes(ctx, false)
			require.NoError(t, err)

			require.NoError(t, svc.CreateRoute(ctx, "web-tls", tt.termination, nil))

			cmds := env.cluster.Commands()
			last := cmds[len(cmds)-1]
			assert.Equal(t, tt.args, last.Args)
			assert.Equal(t, tt.value, last.Flag(tt.flag))
			assert.False(t, env.client.Cache().Loaded(project, KindRoute))
			assert.False(t, env.client.Cache().Loaded(svc, KindRoute))
		})
	}
}

func TestPod_LogsCached(t *testing.T) {
	env := newTestEnv(t)
	env.cluster.Add("pods", testProject, "web-1", map[string]any{"kind": "Pod"})
	env.cluster.SetLogs(testProject, "web-1", "started\n")
	pods, err := env.project(t).Pods(context.Background(), false)
	require.NoError(t, err)
	pod := pods["web-1"]
	ctx := context.Background()
	logPath := "/api/v1/namespaces/demo/pods/web-1/log"

	logs, err := pod.Logs(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, "started\n", logs)

	env.cluster.SetLogs(testProject, "web-1", "started\nready\n")
	logs, err = pod.Logs(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, "started\n", logs)
	assert.Equal(t, 1, env.cluster.Reads(logPath))

	logs, err = pod.Logs(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, "started\nready\n", logs)

	pod.Invalidate()
	_, err = pod.Logs(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, 3, env.cluster.Reads(logPath))
}

func TestPod_Rsync(t *testing.T) {
	env := newTestEnv(t)
	env.cluster.Add("pods", testProject, "web-1", map[string]any{"kind": "Pod"})
	pods, err := env.project(t).Pods(context.Background(), false)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, pods["web-1"].Rsync(ctx, "/tmp/out", "/var/log", false, nil))
	require.NoError(t, pods["web-1"].Rsync(ctx, "/tmp/in", "/data", true, exec.Options{"delete": true}))

	cmds := env.cluster.Commands()
	assert.Equal(t, []string{"rsync", "web-1:/var/log", "/tmp/out"}, cmds[len(cmds)-2].Args)
	assert.Equal(t, []string{"rsync", "/tmp/in", "web-1:/data"}, cmds[len(cmds)-1].Args)
	assert.Equal(t, "true", cmds[len(cmds)-1].Flag("delete"))
}

func TestTemplate_ProcessInvalidatesProject(t *testing.T) {
	env := newTestEnv(t)
	env.cluster.Add("templates", testProject, "app", map[string]any{
		"kind":       "Template",
		"parameters": []any{map[string]any{"name": "NAME"}, map[string]any{"name": "REPLICAS"}},
	})
	project := env.project(t)
	ctx := context.Background()

	templates, err := project.Templates(ctx, false)
	require.NoError(t, err)
	_, err = project.Secrets(ctx, false)
	require.NoError(t, err)

	tmpl := templates["app"]
	assert.Equal(t, []string{"NAME", "REPLICAS"}, tmpl.Parameters())
	require.NoError(t, tmpl.Process(ctx, map[string]string{"REPLICAS": "2", "NAME": "web"}, nil))

	cmds := env.cluster.Commands()
	last := cmds[len(cmds)-1]
	assert.Equal(t, []string{"process", "app"}, last.Args)
	assert.Equal(t, []string{"NAME=web", "REPLICAS=2"}, last.Flags["param"])

	cache := env.client.Cache()
	assert.False(t, cache.Loaded(project, KindTemplate))
	assert.False(t, cache.Loaded(project, KindSecret))
}

func TestRoleBinding_Accessors(t *testing.T) {
	rb := &RoleBinding{Object: &Object{obj: &unstructured.Unstructured{Object: map[string]any{
		"roleRef":  map[string]any{"name": "admin"},
		"subjects": []any{map[string]any{"kind": "User", "name": "alice"}, map[string]any{"kind": "Group", "name": "devs"}},
	}}}}

	assert.Equal(t, "admin", rb.RoleName())
	assert.Equal(t, []string{"User:alice", "Group:devs"}, rb.Subjects())
}

func TestParseKind(t *testing.T) {
	tests := map[string]Kind{
		"dc":               KindDeploymentConfig,
		"deploymentconfig": KindDeploymentConfig,
		"routes":           KindRoute,
		"SVC":              KindService,
		"rolebinding":      KindRoleBinding,
	}
	for in, expected := range tests {
		kind, ok := ParseKind(in)
		assert.True(t, ok, in)
		assert.Equal(t, expected, kind, in)
	}

	_, ok := ParseKind("widget")
	assert.False(t, ok)
	assert.Equal(t, "replicationcontroller", KindReplicationController.CommandName())
}

func TestProject_CreateInvalidatesOneCollection(t *testing.T) {
	tests := []struct {
		name   string
		create func(ctx context.Context, p *Project) error
		kind   Kind
		args   []string
	}{
		{
			name: "secret",
			create: func(ctx context.Context, p *Project) error {
				return p.CreateSecret(ctx, "db", "generic", exec.Options{"from-literal": []string{"user=admin"}})
			},
			kind: KindSecret,
			args: []string{"create", "secret", "generic", "db"},
		},
		{
			name: "configmap",
			create: func(ctx context.Context, p *Project) error {
				return p.CreateConfigMap(ctx, "settings", "from-file", "app.properties", nil)
			},
			kind: KindConfigMap,
			args: []string{"create", "configmap", "settings"},
		},
		{
			name: "service",
			create: func(ctx context.Context, p *Project) error {
				return p.CreateService(ctx, "web", "clusterip", exec.Options{"tcp": "8080:8080"})
			},
			kind: KindService,
			args: []string{"create", "service", "clusterip", "web"},
		},
		{
			name: "template",
			create: func(ctx context.Context, p *Project) error {
				return p.CreateTemplate(ctx, "template.yaml")
			},
			kind: KindTemplate,
			args: []string{"create"},
		},
		{
			name: "user role",
			create: func(ctx context.Context, p *Project) error {
				return p.AddRoleToUser(ctx, "edit", "alice")
			},
			kind: KindRoleBinding,
			args: []string{"policy", "add-role-to-user", "edit", "alice"},
		},
		{
			name: "group role",
			create: func(ctx context.Context, p *Project) error {
				return p.AddRoleToGroup(ctx, "view", "devs")
			},
			kind: KindRoleBinding,
			args: []string{"policy", "add-role-to-group", "view", "devs"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			project := env.project(t)
			ctx := context.Background()

			_, err := project.Resources(ctx, tt.kind, false)
			require.NoError(t, err)
			_, err = project.Pods(ctx, false)
			require.NoError(t, err)

			require.NoError(t, tt.create(ctx, project))

			cmds := env.cluster.Commands()
			last := cmds[len(cmds)-1]
			assert.Equal(t, tt.args, last.Args)
			assert.Equal(t, testProject, last.Namespace)
			assert.False(t, env.client.Cache().Loaded(project, tt.kind))
			assert.True(t, env.client.Cache().Loaded(project, KindPod))
		})
	}
}

func TestProject_CreateSecretVisibleAfterInvalidation(t *testing.T) {
	env := newTestEnv(t)
	env.cluster.Handle("create secret", func(c *fakecluster.Cluster, cmd fakecluster.Command) *exec.ExecuteResult {
		c.Add("secrets", cmd.Namespace, cmd.Args[3], secret(nil))
		return nil
	})
	project := env.project(t)
	ctx := context.Background()

	secrets, err := project.Secrets(ctx, false)
	require.NoError(t, err)
	assert.Empty(t, secrets)

	require.NoError(t, project.CreateSecret(ctx, "db", "generic", nil))

	secrets, err = project.Secrets(ctx, false)
	require.NoError(t, err)
	assert.Contains(t, secrets, "db")
}

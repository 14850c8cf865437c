package openshift

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	testingclock "k8s.io/utils/clock/testing"

	"github.com/tapcraft-io/shift/internal/fakecluster"
	"github.com/tapcraft-io/shift/internal/logging"
)

const (
	testServer  = "https://api.example:8443"
	testToken   = "sha256~secret-token"
	testProject = "demo"
)

type recordedEntry struct {
	command   string
	success   bool
	namespace string
}

type memoryJournal struct {
	entries []recordedEntry
}

func (j *memoryJournal) Add(command string, success bool, _ string, namespace string) {
	j.entries = append(j.entries, recordedEntry{command: command, success: success, namespace: namespace})
}

type testEnv struct {
	client  *Client
	cluster *fakecluster.Cluster
	clock   *testingclock.FakeClock
	journal *memoryJournal
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	cluster := fakecluster.New()
	cluster.AddProject(testProject)
	clk := testingclock.NewFakeClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	journal := &memoryJournal{}

	client, err := New(Config{
		Server:         testServer,
		Token:          testToken,
		VerifySSL:      true,
		PollInterval:   time.Second,
		DefaultTimeout: 30 * time.Second,
	}, cluster, cluster,
		WithClock(clk),
		WithLogger(logging.Discard()),
		WithJournal(journal),
	)
	require.NoError(t, err)

	return &testEnv{client: client, cluster: cluster, clock: clk, journal: journal}
}

func (e *testEnv) project(t *testing.T) *Project {
	t.Helper()
	p, ok, err := e.client.Project(context.Background(), testProject)
	require.NoError(t, err)
	require.True(t, ok)
	return p
}

func secret(data map[string]any) map[string]any {
	return map[string]any{
		"kind": "Secret",
		"type": "Opaque",
		"data": data,
	}
}

func deploymentConfig(replicas, latestVersion int64, env ...any) map[string]any {
	return map[string]any{
		"kind": "DeploymentConfig",
		"spec": map[string]any{
			"replicas": replicas,
			"template": map[string]any{
				"spec": map[string]any{
					"containers": []any{
						map[string]any{"name": "app", "image": "quay.io/app:1", "env": env},
						map[string]any{"name": "sidecar", "image": "quay.io/proxy:1"},
					},
				},
			},
		},
		"status": map[string]any{"latestVersion": latestVersion},
	}
}

func replicationController(dc string, version int64, phase string, replicas, ready int64) map[string]any {
	return map[string]any{
		"kind": "ReplicationController",
		"metadata": map[string]any{
			"annotations": map[string]any{
				annotationDeploymentConfigName: dc,
				annotationDeploymentVersion:    itoa(version),
				annotationDeploymentPhase:      phase,
			},
		},
		"spec":   map[string]any{"replicas": replicas},
		"status": map[string]any{"replicas": replicas, "readyReplicas": ready},
	}
}

func route(service, host, termination string) map[string]any {
	spec := map[string]any{
		"host": host,
		"to":   map[string]any{"kind": "Service", "name": service},
	}
	if termination != "" {
		spec["tls"] = map[string]any{"termination": termination}
	}
	return map[string]any{"kind": "Route", "spec": spec}
}

func rcName(dc string, version int64) string {
	return dc + "-" + itoa(version)
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}

func setPhase(phase string) func(map[string]any) {
	return func(obj map[string]any) {
		meta := obj["metadata"].(map[string]any)
		meta["annotations"].(map[string]any)[annotationDeploymentPhase] = phase
	}
}

func nsPath(kind Kind) string {
	group := "/api/v1"
	switch kind {
	case KindDeploymentConfig, KindRoute, KindTemplate, KindRoleBinding, KindProject:
		group = "/oapi/v1"
	}
	return group + "/namespaces/" + testProject + "/" + string(kind)
}

package exec

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptions_Unfold(t *testing.T) {
	tests := []struct {
		name     string
		opts     Options
		expected []string
	}{
		{
			name:     "scalar",
			opts:     Options{"replicas": 3},
			expected: []string{"--replicas=3"},
		},
		{
			name:     "list repeats the flag",
			opts:     Options{"param": []string{"A=1", "B=2"}},
			expected: []string{"--param=A=1", "--param=B=2"},
		},
		{
			name:     "map becomes key=value flags",
			opts:     Options{"from-literal": map[string]string{"user": "admin", "pass": "s3cr3t"}},
			expected: []string{"--from-literal=pass=s3cr3t", "--from-literal=user=admin"},
		},
		{
			name:     "nil is omitted",
			opts:     Options{"namespace": "demo", "selector": nil},
			expected: []string{"--namespace=demo"},
		},
		{
			name:     "flags sorted by name",
			opts:     Options{"b": "2", "a": true},
			expected: []string{"--a=true", "--b=2"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.opts.Unfold())
		})
	}
}

func TestCommand_Argv(t *testing.T) {
	cmd := NewCommand("policy add-role-to-user", "view", "alice").With(Options{"namespace": "demo"})
	assert.Equal(t, []string{"policy", "add-role-to-user", "view", "alice", "--namespace=demo"}, cmd.Argv())
	assert.Equal(t, "policy add-role-to-user view alice --namespace=demo", cmd.String())
}

func TestCommand_WithKeepsExistingOptions(t *testing.T) {
	cmd := Command{Verb: "get", Options: Options{"namespace": "mine"}}
	merged := cmd.With(Options{"namespace": "other", "output": "json"})

	assert.Equal(t, "mine", merged.Options["namespace"])
	assert.Equal(t, "json", merged.Options["output"])
	assert.NotContains(t, cmd.Options, "output")
}

func TestCommand_StringQuotesPatch(t *testing.T) {
	cmd := NewCommand("patch", "secret", "db").With(Options{"patch": `{"data": {"a": "b"}}`})
	assert.Equal(t, `patch secret db '--patch={"data": {"a": "b"}}'`, cmd.String())
}

func TestRedact(t *testing.T) {
	args := []string{"--server=https://api", "--token=abc123", "get", "pods"}
	assert.Equal(t, []string{"--server=https://api", "--token=***", "get", "pods"}, Redact(args, "abc123"))
	assert.Equal(t, args, Redact(args, ""))
}

func TestParser_Parse(t *testing.T) {
	parser := NewParser()

	tests := []struct {
		name          string
		input         string
		expectedVerb  string
		expectedRes   string
		expectedName  string
		expectedNS    string
		expectedValid bool
	}{
		{
			name:          "Simple get pods",
			input:         "get pods",
			expectedVerb:  "get",
			expectedRes:   "pods",
			expectedValid: true,
		},
		{
			name:          "oc prefix and namespace",
			input:         "oc get dc -n default",
			expectedVerb:  "get",
			expectedRes:   "deploymentconfigs",
			expectedNS:    "default",
			expectedValid: true,
		},
		{
			name:          "Slash resource form",
			input:         "rollout latest dc/frontend",
			expectedVerb:  "rollout",
			expectedRes:   "latest",
			expectedName:  "dc/frontend",
			expectedValid: true,
		},
		{
			name:          "Equals namespace form",
			input:         "delete secret db --namespace=staging",
			expectedVerb:  "delete",
			expectedRes:   "secrets",
			expectedName:  "db",
			expectedNS:    "staging",
			expectedValid: true,
		},
		{
			name:          "Quoted argument",
			input:         `patch configmap app -p '{"data": {"a": "b"}}'`,
			expectedVerb:  "patch",
			expectedRes:   "configmaps",
			expectedName:  "app",
			expectedValid: true,
		},
		{
			name:          "Empty command",
			input:         "",
			expectedValid: false,
		},
		{
			name:          "Unterminated quote",
			input:         `get pods -l 'app=web`,
			expectedValid: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := parser.Parse(tt.input)

			require.Equal(t, tt.expectedValid, result.IsValid, "errors: %v", result.Errors)
			if !tt.expectedValid {
				return
			}
			assert.Equal(t, tt.expectedVerb, result.Verb)
			assert.Equal(t, tt.expectedRes, result.Resource)
			assert.Equal(t, tt.expectedName, result.ResourceName)
			assert.Equal(t, tt.expectedNS, result.Namespace)
		})
	}
}

func TestParser_QuotedFlagValue(t *testing.T) {
	result := NewParser().Parse(`patch configmap app -p '{"data": {"a": "b"}}'`)
	assert.Equal(t, `{"data": {"a": "b"}}`, result.Flags["patch"])
}

func TestIsDestructive(t *testing.T) {
	parser := NewParser()

	tests := []struct {
		input    string
		expected bool
	}{
		{"get pods", false},
		{"delete project demo", true},
		{"scale dc/web --replicas=0", true},
		{"describe pod web --force", true},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsDestructive(parser.Parse(tt.input)))
		})
	}
}

func TestExecutor_CapturesOutput(t *testing.T) {
	e, err := NewExecutor("sh")
	require.NoError(t, err)

	result := e.Execute(context.Background(), []string{"-c", "echo out; echo err >&2; exit 3"})
	assert.Equal(t, 3, result.ExitCode)
	assert.Equal(t, "out\n", result.Stdout)
	assert.Equal(t, "err\n", result.Stderr)
	assert.True(t, result.Failed())

	result = e.Execute(context.Background(), []string{"-c", `echo "a b"`})
	assert.Equal(t, 0, result.ExitCode)
	assert.Equal(t, "a b\n", result.Stdout)
	assert.False(t, result.Failed())
}

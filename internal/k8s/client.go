package k8s

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/discovery"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
)

// Transport performs authenticated reads against the API server
type Transport struct {
	restClient rest.Interface
	RestConfig *rest.Config
}

// ReadError carries the raw error payload of a failed read
type ReadError struct {
	Path       string
	StatusCode int
	Body       []byte
	Err        error
}

func (e *ReadError) Error() string {
	if len(e.Body) > 0 {
		return fmt.Sprintf("GET %s failed with status %d: %s", e.Path, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("GET %s failed with status %d: %v", e.Path, e.StatusCode, e.Err)
}

func (e *ReadError) Unwrap() error {
	return e.Err
}

// NotFound reports whether the server answered 404
func (e *ReadError) NotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// NewTransport creates a transport for server authenticated with a bearer token
func NewTransport(server, token string, verifySSL bool) (*Transport, error) {
	config := &rest.Config{
		Host:        server,
		BearerToken: token,
		TLSClientConfig: rest.TLSClientConfig{
			Insecure: !verifySSL,
		},
	}

	// The discovery client's REST client is unversioned, which is what raw
	// path reads need
	client, err := discovery.NewDiscoveryClientForConfig(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create rest client: %w", err)
	}

	t := NewTransportForClient(client.RESTClient())
	t.RestConfig = config
	return t, nil
}

// NewTransportForClient wraps an existing REST client
func NewTransportForClient(client rest.Interface) *Transport {
	return &Transport{restClient: client}
}

// Read fetches path and returns the response body
func (t *Transport) Read(ctx context.Context, path string) ([]byte, error) {
	result := t.restClient.Get().AbsPath(path).Do(ctx)
	body, err := result.Raw()
	if err != nil {
		var code int
		result.StatusCode(&code)
		return nil, &ReadError{Path: path, StatusCode: code, Body: body, Err: err}
	}
	return body, nil
}

// Discover lists the resource names served under a group path such as
// /api/v1 or /oapi/v1
func (t *Transport) Discover(ctx context.Context, groupPath string) ([]string, error) {
	body, err := t.Read(ctx, groupPath)
	if err != nil {
		return nil, err
	}

	var list metav1.APIResourceList
	if err := json.Unmarshal(body, &list); err != nil {
		return nil, fmt.Errorf("failed to decode discovery document for %s: %w", groupPath, err)
	}

	names := make([]string, 0, len(list.APIResources))
	for _, r := range list.APIResources {
		names = append(names, r.Name)
	}
	return names, nil
}

// Credentials is a server/token pair read from a kubeconfig
type Credentials struct {
	Context string
	Server  string
	Token   string
}

// CredentialsFromKubeconfig returns the server and token of the current
// context. An empty path uses ~/.kube/config.
func CredentialsFromKubeconfig(kubeconfigPath string) (*Credentials, error) {
	if kubeconfigPath == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		kubeconfigPath = filepath.Join(homeDir, ".kube", "config")
	}

	config, err := clientcmd.LoadFromFile(kubeconfigPath)
	if err != nil {
		return nil, err
	}

	ctx, ok := config.Contexts[config.CurrentContext]
	if !ok {
		return nil, fmt.Errorf("current context %q not found in %s", config.CurrentContext, kubeconfigPath)
	}

	creds := &Credentials{Context: config.CurrentContext}
	if cluster, ok := config.Clusters[ctx.Cluster]; ok {
		creds.Server = cluster.Server
	}
	if user, ok := config.AuthInfos[ctx.AuthInfo]; ok {
		creds.Token = user.Token
	}

	return creds, nil
}

package ambari

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RReivax/ansible-plugin-inventory-ambari/internal/config"
)

// newTestClient points a Client at an httptest server.
func newTestClient(t *testing.T, ts *httptest.Server, validateSSL bool) *Client {
	t.Helper()
	u, err := url.Parse(ts.URL)
	require.NoError(t, err)
	host, portStr, err := net.SplitHostPort(u.Host)
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	cfg := &config.Config{
		Hostname:       host,
		Port:           port,
		Username:       "admin",
		Password:       "secret",
		Protocol:       u.Scheme,
		ValidateSSL:    validateSSL,
		RequestTimeout: 5 * time.Second,
	}
	return New(cfg, zerolog.Nop())
}

func TestListClusters(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/clusters", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "admin", user)
		assert.Equal(t, "secret", pass)
		assert.Equal(t, "ambari", r.Header.Get("X-Requested-By"))

		w.Write([]byte(`{"items": [
			{"Clusters": {"cluster_name": "demo"}},
			{"Clusters": {"cluster_name": "staging"}}
		]}`))
	}))
	defer ts.Close()

	clusters, err := newTestClient(t, ts, false).ListClusters(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"demo", "staging"}, clusters)
}

func TestListServiceComponents(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/clusters/demo/services", r.URL.Path)
		assert.Equal(t, "components/ServiceComponentInfo", r.URL.Query().Get("fields"))

		w.Write([]byte(`{"items": [
			{"ServiceInfo": {"service_name": "HDFS"}, "components": [
				{"ServiceComponentInfo": {"component_name": "NAMENODE", "service_name": "HDFS"}},
				{"ServiceComponentInfo": {"component_name": "DATANODE", "service_name": "HDFS"}}
			]},
			{"ServiceInfo": {"service_name": "YARN"}, "components": [
				{"ServiceComponentInfo": {"component_name": "RESOURCEMANAGER", "service_name": "YARN"}}
			]}
		]}`))
	}))
	defer ts.Close()

	components, err := newTestClient(t, ts, false).ListServiceComponents(context.Background(), "demo")
	require.NoError(t, err)
	assert.Equal(t, []Component{
		{Name: "NAMENODE", ServiceName: "HDFS"},
		{Name: "DATANODE", ServiceName: "HDFS"},
		{Name: "RESOURCEMANAGER", ServiceName: "YARN"},
	}, components)
}

func TestListHosts(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/clusters/demo/hosts", r.URL.Path)
		w.Write([]byte(`{"items": [
			{"Hosts": {"host_name": "node1", "host_status": "HEALTHY"}},
			{"Hosts": {"host_name": "node2", "host_status": "UNHEALTHY"}}
		]}`))
	}))
	defer ts.Close()

	hosts, err := newTestClient(t, ts, false).ListHosts(context.Background(), "demo")
	require.NoError(t, err)
	assert.Equal(t, []HostSummary{
		{Name: "node1", Status: "HEALTHY"},
		{Name: "node2", Status: "UNHEALTHY"},
	}, hosts)
}

func TestGetHostFiltersDetailFields(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/hosts/node1", r.URL.Path)
		w.Write([]byte(`{"Hosts": {
			"host_name": "node1",
			"host_status": "HEALTHY",
			"host_state": "HEALTHY",
			"last_heartbeat_time": 1700000000,
			"last_registration_time": 1600000000,
			"desired_configs": {"core-site": {"tag": "v1"}},
			"ip": "10.0.0.1",
			"os_type": "centos7",
			"rack_info": "/default-rack",
			"cpu_count": 8
		}}`))
	}))
	defer ts.Close()

	detail, err := newTestClient(t, ts, false).GetHost(context.Background(), "node1")
	require.NoError(t, err)

	assert.Equal(t, "node1", detail.Name)
	assert.Equal(t, "HEALTHY", detail.Status)

	// Noisy and oversized fields never reach the exported set.
	assert.NotContains(t, detail.Fields, "host_state")
	assert.NotContains(t, detail.Fields, "last_heartbeat_time")
	assert.NotContains(t, detail.Fields, "last_registration_time")
	assert.NotContains(t, detail.Fields, "desired_configs")

	assert.Equal(t, "10.0.0.1", detail.Fields["ip"])
	assert.Equal(t, "centos7", detail.Fields["os_type"])
	assert.Equal(t, "/default-rack", detail.Fields["rack_info"])
	assert.EqualValues(t, 8, detail.Fields["cpu_count"])
}

func TestSuppressedField(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"host_name", true},
		{"host_status", true},
		{"hostname_suffix", true},
		{"last_heartbeat_time", true},
		{"desired_configs", true},
		{"ip", false},
		{"os_type", false},
		{"public_host_name", false},
		{"rack_info", false},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, suppressedField(tc.name), tc.name)
	}
}

func TestGetHostComponents(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/clusters/demo/hosts/node1/host_components", r.URL.Path)
		w.Write([]byte(`{"items": [
			{"HostRoles": {"component_name": "NAMENODE"}},
			{"HostRoles": {"component_name": "ZOOKEEPER_SERVER"}}
		]}`))
	}))
	defer ts.Close()

	components, err := newTestClient(t, ts, false).GetHostComponents(context.Background(), "demo", "node1")
	require.NoError(t, err)
	assert.Equal(t, []string{"NAMENODE", "ZOOKEEPER_SERVER"}, components)
}

func TestGetServiceConfigVersions(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/clusters/demo/configurations/service_config_versions", r.URL.Path)
		assert.Contains(t, r.URL.RawQuery, "service_name.in(HDFS)")
		assert.Contains(t, r.URL.RawQuery, "is_current=true")

		w.Write([]byte(`{"items": [{"configurations": [
			{"type": "core-site", "properties": {"fs.defaultFS": "hdfs://node1:8020"}},
			{"type": "hdfs-site", "properties": {"dfs.replication": "3"}}
		]}]}`))
	}))
	defer ts.Close()

	versions, err := newTestClient(t, ts, false).GetServiceConfigVersions(context.Background(), "demo", "HDFS")
	require.NoError(t, err)
	require.Len(t, versions, 1)
	require.Len(t, versions[0].Configurations, 2)
	assert.Equal(t, "core-site", versions[0].Configurations[0].Type)
	assert.Equal(t, "hdfs://node1:8020", versions[0].Configurations[0].Properties["fs.defaultFS"])
}

func TestGetServiceConfigVersionsRemoteError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"status": 404, "message": "service not found"}`))
	}))
	defer ts.Close()

	_, err := newTestClient(t, ts, false).GetServiceConfigVersions(context.Background(), "demo", "GONE")
	var rse *RemoteServiceError
	require.ErrorAs(t, err, &rse)
	assert.Equal(t, http.StatusNotFound, rse.StatusCode)
	assert.Contains(t, rse.Body, "service not found")
}

func TestGenericOperationErrors(t *testing.T) {
	t.Run("non-2xx surfaces as ClientError", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte("boom"))
		}))
		defer ts.Close()

		_, err := newTestClient(t, ts, false).ListClusters(context.Background())
		var ce *ClientError
		require.ErrorAs(t, err, &ce)
		assert.Contains(t, ce.Error(), "status 500")

		var rse *RemoteServiceError
		assert.False(t, errors.As(err, &rse), "generic operations must not surface RemoteServiceError")
	})

	t.Run("malformed JSON surfaces as ClientError", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("<html>not json</html>"))
		}))
		defer ts.Close()

		_, err := newTestClient(t, ts, false).ListClusters(context.Background())
		var ce *ClientError
		require.ErrorAs(t, err, &ce)
	})
}

func TestTLSVerificationGate(t *testing.T) {
	ts := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"items": []}`))
	}))
	defer ts.Close()

	t.Run("skipped when validate_ssl is false", func(t *testing.T) {
		clusters, err := newTestClient(t, ts, false).ListClusters(context.Background())
		require.NoError(t, err)
		assert.Empty(t, clusters)
	})

	t.Run("enforced when validate_ssl is true", func(t *testing.T) {
		// The test server's certificate is self-signed, so a verifying
		// client must refuse it.
		_, err := newTestClient(t, ts, true).ListClusters(context.Background())
		require.Error(t, err)
	})
}

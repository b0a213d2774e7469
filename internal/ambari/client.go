// Package ambari is a thin read-only facade over the Ambari cluster
// management REST API. Every operation issues one authenticated GET and
// decodes the JSON response; there are no retries, so the first failure
// aborts the caller's run.
package ambari

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/RReivax/ansible-plugin-inventory-ambari/internal/config"
)

// HTTP client tuning
const (
	maxIdleConns = 100
	idleTimeout  = 90 * time.Second
)

// Client talks to a single Ambari server. Safe for concurrent use.
type Client struct {
	base    string
	user    string
	pass    string
	timeout time.Duration
	http    *http.Client
	log     zerolog.Logger
}

// New builds a Client from a resolved configuration. TLS certificate
// verification is disabled when validate_ssl resolved to false; the setting
// lives on this client's transport only, never in process-global state.
func New(cfg *config.Config, log zerolog.Logger) *Client {
	transport := &http.Transport{
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: !cfg.ValidateSSL,
		},
		MaxIdleConns:        maxIdleConns,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     idleTimeout,
	}

	return &Client{
		base:    cfg.BaseURL() + "/api/v1",
		user:    cfg.Username,
		pass:    cfg.Password,
		timeout: cfg.RequestTimeout,
		http:    &http.Client{Transport: transport},
		log:     log,
	}
}

// ListClusters returns the names of the clusters the server manages, in
// listing order.
func (c *Client) ListClusters(ctx context.Context) ([]string, error) {
	var resp clusterListResponse
	if err := c.getJSON(ctx, "list_clusters", "/clusters", &resp); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(resp.Items))
	for _, item := range resp.Items {
		names = append(names, item.Clusters.ClusterName)
	}
	return names, nil
}

// ListServiceComponents returns every component of every service installed
// on the cluster, each carrying its owning service name.
func (c *Client) ListServiceComponents(ctx context.Context, cluster string) ([]Component, error) {
	path := fmt.Sprintf("/clusters/%s/services?fields=components/ServiceComponentInfo", url.PathEscape(cluster))
	var resp serviceListResponse
	if err := c.getJSON(ctx, "list_services", path, &resp); err != nil {
		return nil, err
	}
	var components []Component
	for _, svc := range resp.Items {
		for _, item := range svc.Components {
			components = append(components, Component{
				Name:        item.ServiceComponentInfo.ComponentName,
				ServiceName: item.ServiceComponentInfo.ServiceName,
			})
		}
	}
	return components, nil
}

// ListComponents returns the components of a single service.
func (c *Client) ListComponents(ctx context.Context, cluster, service string) ([]Component, error) {
	path := fmt.Sprintf("/clusters/%s/services/%s/components", url.PathEscape(cluster), url.PathEscape(service))
	var resp componentListResponse
	if err := c.getJSON(ctx, "list_components", path, &resp); err != nil {
		return nil, err
	}
	components := make([]Component, 0, len(resp.Items))
	for _, item := range resp.Items {
		components = append(components, Component{
			Name:        item.ServiceComponentInfo.ComponentName,
			ServiceName: item.ServiceComponentInfo.ServiceName,
		})
	}
	return components, nil
}

// ListHosts returns the name and health status of every host registered in
// the cluster.
func (c *Client) ListHosts(ctx context.Context, cluster string) ([]HostSummary, error) {
	path := fmt.Sprintf("/clusters/%s/hosts?fields=Hosts/host_status", url.PathEscape(cluster))
	var resp hostListResponse
	if err := c.getJSON(ctx, "list_hosts", path, &resp); err != nil {
		return nil, err
	}
	hosts := make([]HostSummary, 0, len(resp.Items))
	for _, item := range resp.Items {
		hosts = append(hosts, HostSummary{Name: item.Hosts.HostName, Status: item.Hosts.HostStatus})
	}
	return hosts, nil
}

// GetHost returns the full detail record of a host, with variable-unsafe
// fields already stripped.
func (c *Client) GetHost(ctx context.Context, hostName string) (*HostDetail, error) {
	path := "/hosts/" + url.PathEscape(hostName)
	var resp hostDetailResponse
	if err := c.getJSON(ctx, "get_host", path, &resp); err != nil {
		return nil, err
	}
	detail, err := newHostDetail(resp.Hosts)
	if err != nil {
		return nil, &ClientError{Op: "get_host", URL: c.base + path, Err: err}
	}
	if detail.Name == "" {
		detail.Name = hostName
	}
	return detail, nil
}

// GetHostComponents returns the names of the components installed on a host.
func (c *Client) GetHostComponents(ctx context.Context, cluster, hostName string) ([]string, error) {
	path := fmt.Sprintf("/clusters/%s/hosts/%s/host_components", url.PathEscape(cluster), url.PathEscape(hostName))
	var resp hostComponentListResponse
	if err := c.getJSON(ctx, "get_host_components", path, &resp); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(resp.Items))
	for _, item := range resp.Items {
		names = append(names, item.HostRoles.ComponentName)
	}
	return names, nil
}

// GetServiceConfigVersions returns the currently active configuration
// versions of a service. Unlike the other operations, a non-2xx response
// here surfaces as a RemoteServiceError carrying the status and body.
func (c *Client) GetServiceConfigVersions(ctx context.Context, cluster, service string) ([]ConfigVersion, error) {
	path := fmt.Sprintf("/clusters/%s/configurations/service_config_versions?service_name.in(%s)&is_current=true",
		url.PathEscape(cluster), service)
	body, err := c.get(ctx, "get_service_config", path)
	if err != nil {
		if _, ok := err.(*RemoteServiceError); ok {
			return nil, err
		}
		return nil, &ClientError{Op: "get_service_config", URL: c.base + path, Err: err}
	}
	var resp serviceConfigResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &ClientError{Op: "get_service_config", URL: c.base + path, Err: err}
	}
	return resp.Items, nil
}

// getJSON fetches path and decodes the response, folding every failure mode
// into a single ClientError.
func (c *Client) getJSON(ctx context.Context, op, path string, v interface{}) error {
	body, err := c.get(ctx, op, path)
	if err != nil {
		if rse, ok := err.(*RemoteServiceError); ok {
			err = fmt.Errorf("status %d: %s", rse.StatusCode, rse.Body)
		}
		return &ClientError{Op: op, URL: c.base + path, Err: err}
	}
	if err := json.Unmarshal(body, v); err != nil {
		return &ClientError{Op: op, URL: c.base + path, Err: fmt.Errorf("error parsing JSON: %w", err)}
	}
	return nil
}

// get performs an authenticated GET against the Ambari API with timeout.
func (c *Client) get(ctx context.Context, op, path string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	urlStr := c.base + path

	requestsTotal.WithLabelValues(op).Inc()
	timer := prometheus.NewTimer(requestDuration.WithLabelValues(op))
	defer timer.ObserveDuration()

	req, err := http.NewRequestWithContext(ctx, "GET", urlStr, nil)
	if err != nil {
		requestErrors.WithLabelValues(op).Inc()
		return nil, fmt.Errorf("failed to create request for %s: %w", urlStr, err)
	}

	req.SetBasicAuth(c.user, c.pass)
	req.Header.Set("X-Requested-By", "ambari")
	req.Header.Set("Accept", "application/json")

	c.log.Debug().Str("operation", op).Str("url", urlStr).Msg("ambari api request")

	resp, err := c.http.Do(req)
	if err != nil {
		requestErrors.WithLabelValues(op).Inc()
		return nil, fmt.Errorf("request failed for %s: %w", urlStr, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		requestErrors.WithLabelValues(op).Inc()
		return nil, fmt.Errorf("failed to read response body from %s: %w", urlStr, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		requestErrors.WithLabelValues(op).Inc()
		return nil, &RemoteServiceError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       strings.TrimSpace(string(body)),
			URL:        urlStr,
		}
	}

	return body, nil
}

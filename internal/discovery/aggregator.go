// Package discovery walks an Ambari-managed cluster and projects its
// topology into an inventory sink: one group per service and component,
// one host per healthy node, with the cluster configuration attached to
// every host.
package discovery

import (
	"context"
	"sort"

	"github.com/RReivax/ansible-plugin-inventory-ambari/internal/ambari"
)

// Client is the subset of the Ambari API the discovery engine consumes.
// *ambari.Client satisfies it; tests substitute a fake.
type Client interface {
	ListClusters(ctx context.Context) ([]string, error)
	ListServiceComponents(ctx context.Context, cluster string) ([]ambari.Component, error)
	ListComponents(ctx context.Context, cluster, service string) ([]ambari.Component, error)
	ListHosts(ctx context.Context, cluster string) ([]ambari.HostSummary, error)
	GetHost(ctx context.Context, hostName string) (*ambari.HostDetail, error)
	GetHostComponents(ctx context.Context, cluster, hostName string) ([]string, error)
	GetServiceConfigVersions(ctx context.Context, cluster, service string) ([]ambari.ConfigVersion, error)
}

// Topology is the aggregated view of one cluster: its name plus the sorted,
// deduplicated service and host name sets.
type Topology struct {
	ClusterName string
	Services    []string
	Hosts       []string
}

// Aggregate discovers the active cluster and its service and host sets. The
// first cluster returned by the server is the active one; an empty listing
// is ErrNoClusterFound.
//
// Services are discovered through their components: every component's owning
// service name is collected, so a service listed under a synonym but owning
// no components never produces a group of its own.
func Aggregate(ctx context.Context, client Client, includeUnhealthy bool) (*Topology, error) {
	clusters, err := client.ListClusters(ctx)
	if err != nil {
		return nil, err
	}
	if len(clusters) == 0 {
		return nil, ambari.ErrNoClusterFound
	}
	cluster := clusters[0]

	components, err := client.ListServiceComponents(ctx, cluster)
	if err != nil {
		return nil, err
	}
	serviceNames := make([]string, 0, len(components))
	for _, component := range components {
		serviceNames = append(serviceNames, component.ServiceName)
	}

	hosts, err := client.ListHosts(ctx, cluster)
	if err != nil {
		return nil, err
	}
	hostNames := make([]string, 0, len(hosts))
	for _, h := range hosts {
		if !includeUnhealthy && h.Status != ambari.HealthyStatus {
			continue
		}
		hostNames = append(hostNames, h.Name)
	}

	return &Topology{
		ClusterName: cluster,
		Services:    sortedSet(serviceNames),
		Hosts:       sortedSet(hostNames),
	}, nil
}

// componentNames returns the sorted, deduplicated component names of one
// service. Fetched lazily by the projector, once per service.
func componentNames(ctx context.Context, client Client, cluster, service string) ([]string, error) {
	components, err := client.ListComponents(ctx, cluster, service)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(components))
	for _, component := range components {
		names = append(names, component.Name)
	}
	return sortedSet(names), nil
}

// sortedSet sorts values lexicographically and drops duplicates.
func sortedSet(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

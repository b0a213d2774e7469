package discovery

import (
	"context"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/RReivax/ansible-plugin-inventory-ambari/internal/ambari"
	"github.com/RReivax/ansible-plugin-inventory-ambari/internal/config"
	"github.com/RReivax/ansible-plugin-inventory-ambari/internal/inventory"
)

// Synthetic inventory entries for the management plane and the controller
// itself.
const (
	ambariServerGroup = "ambari_server"
	localGroup        = "local"
	localHost         = "localhost"
)

// hostFetchWorkers bounds the concurrent host record lookups. The sink is
// still populated sequentially in sorted host order, so parallelism never
// shows up in the output.
const hostFetchWorkers = 4

// Projector converts an aggregated topology into inventory groups, hosts,
// and variables.
type Projector struct {
	client Client
	cfg    *config.Config
	log    zerolog.Logger
}

// NewProjector returns a projector bound to a client and resolved
// configuration.
func NewProjector(client Client, cfg *config.Config, log zerolog.Logger) *Projector {
	return &Projector{client: client, cfg: cfg, log: log}
}

// Run aggregates the cluster topology and projects it into sink. Any
// failure aborts immediately, leaving the sink partially populated; callers
// rebuild the sink fresh on every invocation.
func (p *Projector) Run(ctx context.Context, sink inventory.Sink) error {
	timer := prometheus.NewTimer(runDuration)
	defer timer.ObserveDuration()

	topo, err := Aggregate(ctx, p.client, p.cfg.IncludeUnhealthy)
	if err != nil {
		runErrors.Inc()
		return err
	}
	servicesDiscovered.Set(float64(len(topo.Services)))
	hostsDiscovered.Set(float64(len(topo.Hosts)))

	if err := p.Project(ctx, topo, sink); err != nil {
		runErrors.Inc()
		return err
	}
	return nil
}

// Project populates sink from an aggregated topology: service and component
// groups first, then hosts with their variables and memberships, then the
// ambari_server and local synthetic entries.
func (p *Projector) Project(ctx context.Context, topo *Topology, sink inventory.Sink) error {
	p.log.Info().
		Str("cluster", topo.ClusterName).
		Int("services", len(topo.Services)).
		Int("hosts", len(topo.Hosts)).
		Msg("projecting cluster topology")

	if err := p.populateGroups(ctx, topo, sink); err != nil {
		return err
	}
	if err := p.populateHosts(ctx, topo, sink); err != nil {
		return err
	}
	if err := p.populateAmbariServer(topo, sink); err != nil {
		return err
	}
	return p.populateLocal(sink)
}

// populateGroups creates one group per service and one per component, with
// the component group linked under its owning service group. A component
// whose name equals its service name keeps its group but gets no
// self-referential edge.
func (p *Projector) populateGroups(ctx context.Context, topo *Topology, sink inventory.Sink) error {
	for _, service := range topo.Services {
		serviceGroup := strings.ToLower(service)
		sink.AddGroup(serviceGroup)

		components, err := componentNames(ctx, p.client, topo.ClusterName, service)
		if err != nil {
			return err
		}
		for _, component := range components {
			componentGroup := strings.ToLower(component)
			sink.AddGroup(componentGroup)
			if serviceGroup != componentGroup {
				sink.AddChild(serviceGroup, componentGroup)
			}
		}
	}
	return nil
}

// hostRecord is the per-host data fetched ahead of projection.
type hostRecord struct {
	detail     *ambari.HostDetail
	components []string
}

// populateHosts adds every discovered host with its configuration bundle,
// detail fields, SSH overrides, and component group memberships.
func (p *Projector) populateHosts(ctx context.Context, topo *Topology, sink inventory.Sink) error {
	configurations, err := p.configBundles(ctx, topo)
	if err != nil {
		return err
	}

	records, err := p.fetchHostRecords(ctx, topo)
	if err != nil {
		return err
	}

	for i, hostName := range topo.Hosts {
		record := records[i]
		sink.AddHost(hostName, "")

		if err := sink.SetVariable(hostName, "configurations", configurations); err != nil {
			return err
		}
		// The discovered name is assumed directly reachable; no DNS or
		// IP resolution happens here.
		if err := sink.SetVariable(hostName, "ansible_host", hostName); err != nil {
			return err
		}
		for field, value := range record.detail.Fields {
			if err := sink.SetVariable(hostName, field, value); err != nil {
				return err
			}
		}

		if p.cfg.SSHUser != "" {
			if err := sink.SetVariable(hostName, "ansible_user", p.cfg.SSHUser); err != nil {
				return err
			}
		}
		if p.cfg.SSHPassword != "" {
			if err := sink.SetVariable(hostName, "ansible_ssh_pass", p.cfg.SSHPassword); err != nil {
				return err
			}
		}

		for _, component := range record.components {
			sink.AddHost(hostName, strings.ToLower(component))
		}
	}
	return nil
}

// fetchHostRecords looks up the detail record and installed components of
// every host, a bounded number at a time. Results come back indexed by the
// host's position in topo.Hosts so projection order stays deterministic.
func (p *Projector) fetchHostRecords(ctx context.Context, topo *Topology) ([]hostRecord, error) {
	records := make([]hostRecord, len(topo.Hosts))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(hostFetchWorkers)
	for i, hostName := range topo.Hosts {
		i, hostName := i, hostName
		g.Go(func() error {
			detail, err := p.client.GetHost(ctx, hostName)
			if err != nil {
				return err
			}
			components, err := p.client.GetHostComponents(ctx, topo.ClusterName, hostName)
			if err != nil {
				return err
			}
			records[i] = hostRecord{detail: detail, components: components}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return records, nil
}

// configBundles builds the per-service configuration mapping (service name
// to config type to properties) attached to every host. The source query is
// cluster-scoped, so the bundle
// is identical for all hosts; it is computed once per service per run and
// shared.
func (p *Projector) configBundles(ctx context.Context, topo *Topology) (map[string]interface{}, error) {
	bundles := make(map[string]interface{}, len(topo.Services))
	for _, service := range topo.Services {
		versions, err := p.client.GetServiceConfigVersions(ctx, topo.ClusterName, service)
		if err != nil {
			return nil, err
		}
		bundle := map[string]interface{}{}
		for _, version := range versions {
			flat := make(map[string]interface{}, len(version.Configurations))
			for _, cfg := range version.Configurations {
				flat[cfg.Type] = cfg.Properties
			}
			bundle = flat
		}
		bundles[strings.ToLower(service)] = bundle
	}
	return bundles, nil
}

// populateAmbariServer adds the management server itself as an automation
// target, carrying the full resolved connection settings.
func (p *Projector) populateAmbariServer(topo *Topology, sink inventory.Sink) error {
	sink.AddGroup(ambariServerGroup)
	sink.AddHost(p.cfg.Hostname, ambariServerGroup)

	ambariConfig := map[string]interface{}{
		"protocol":     p.cfg.Protocol,
		"port":         p.cfg.Port,
		"username":     p.cfg.Username,
		"password":     p.cfg.Password,
		"validate_ssl": p.cfg.ValidateSSL,
		"cluster_name": topo.ClusterName,
	}
	return sink.SetVariable(p.cfg.Hostname, "ambari_config", ambariConfig)
}

// populateLocal adds the fixed localhost entry for automation steps that
// run on the controller rather than a cluster member.
func (p *Projector) populateLocal(sink inventory.Sink) error {
	sink.AddGroup(localGroup)
	sink.AddHost(localHost, localGroup)

	vars := map[string]interface{}{
		"ansible_connection": "local",
		"ansible_host":       "127.0.0.1",
		"ansible_become":     false,
	}
	for key, value := range vars {
		if err := sink.SetVariable(localHost, key, value); err != nil {
			return err
		}
	}
	return nil
}

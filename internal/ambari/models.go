package ambari

import (
	"strings"

	"github.com/mitchellh/mapstructure"
)

// HealthyStatus is the host status Ambari reports for a live, heartbeating
// node. Discovery keeps only these hosts unless configured otherwise.
const HealthyStatus = "HEALTHY"

// Component is a single installable role belonging to exactly one service.
type Component struct {
	Name        string
	ServiceName string
}

// HostSummary is the per-host entry of the cluster host listing.
type HostSummary struct {
	Name   string
	Status string
}

// HostDetail is the full host record. Known identity fields are typed;
// everything else the API reports lands in Fields, already filtered down to
// what is safe to export as host variables (see newHostDetail).
type HostDetail struct {
	Name   string
	Status string
	Fields map[string]interface{}
}

// ConfigVersion is one entry of a service_config_versions response.
type ConfigVersion struct {
	Configurations []ConfigType `json:"configurations"`
}

// ConfigType is one configuration file of a service, e.g. core-site.
type ConfigType struct {
	Type       string                 `json:"type"`
	Properties map[string]interface{} `json:"properties"`
}

// JSON structures matching the Ambari API responses.

type clusterListResponse struct {
	Items []struct {
		Clusters struct {
			ClusterName string `json:"cluster_name"`
		} `json:"Clusters"`
	} `json:"items"`
}

type serviceListResponse struct {
	Items []struct {
		ServiceInfo struct {
			ServiceName string `json:"service_name"`
		} `json:"ServiceInfo"`
		Components []componentItem `json:"components"`
	} `json:"items"`
}

type componentListResponse struct {
	Items []componentItem `json:"items"`
}

type componentItem struct {
	ServiceComponentInfo struct {
		ComponentName string `json:"component_name"`
		ServiceName   string `json:"service_name"`
	} `json:"ServiceComponentInfo"`
}

type hostListResponse struct {
	Items []struct {
		Hosts struct {
			HostName   string `json:"host_name"`
			HostStatus string `json:"host_status"`
		} `json:"Hosts"`
	} `json:"items"`
}

type hostDetailResponse struct {
	Hosts map[string]interface{} `json:"Hosts"`
}

type hostComponentListResponse struct {
	Items []struct {
		HostRoles struct {
			ComponentName string `json:"component_name"`
		} `json:"HostRoles"`
	} `json:"items"`
}

type serviceConfigResponse struct {
	Items []ConfigVersion `json:"items"`
}

// newHostDetail builds a HostDetail from the raw Hosts record. The
// suppression rule is applied here, once, at ingestion: fields named host*
// or last* and the desired_configs blob never reach the exported Fields map.
func newHostDetail(raw map[string]interface{}) (*HostDetail, error) {
	var rec struct {
		Name   string                 `mapstructure:"host_name"`
		Status string                 `mapstructure:"host_status"`
		Rest   map[string]interface{} `mapstructure:",remain"`
	}
	if err := mapstructure.Decode(raw, &rec); err != nil {
		return nil, err
	}

	fields := make(map[string]interface{}, len(rec.Rest))
	for name, value := range rec.Rest {
		if suppressedField(name) {
			continue
		}
		fields[name] = value
	}

	return &HostDetail{Name: rec.Name, Status: rec.Status, Fields: fields}, nil
}

// suppressedField reports whether a host detail field is too noisy,
// redundant, or oversized to become a host variable.
func suppressedField(name string) bool {
	return strings.HasPrefix(name, "host") ||
		strings.HasPrefix(name, "last") ||
		name == "desired_configs"
}

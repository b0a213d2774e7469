package inventory

import (
	"encoding/json"

	"gopkg.in/yaml.v3"
)

// listGroup is one group entry of the dynamic inventory protocol output.
type listGroup struct {
	Hosts    []string               `json:"hosts,omitempty"`
	Children []string               `json:"children,omitempty"`
	Vars     map[string]interface{} `json:"vars,omitempty"`
}

// ListJSON renders the inventory in the Ansible dynamic inventory `--list`
// shape: one object per group plus `_meta.hostvars`.
func (inv *Inventory) ListJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(inv.groups)+1)
	for name, g := range inv.groups {
		out[name] = listGroup{
			Hosts:    sortedKeys(g.hosts),
			Children: sortedKeys(g.children),
			Vars:     g.vars,
		}
	}

	hostvars := make(map[string]map[string]interface{}, len(inv.hosts))
	for name, h := range inv.hosts {
		hostvars[name] = h.vars
	}
	out["_meta"] = map[string]interface{}{"hostvars": hostvars}

	return json.MarshalIndent(out, "", "  ")
}

// HostJSON renders a single host's variables for `--host`. An unknown host
// yields an empty object, which downstream tooling reads as a host with no
// variables.
func (inv *Inventory) HostJSON(name string) ([]byte, error) {
	h, ok := inv.hosts[name]
	if !ok {
		return []byte("{}"), nil
	}
	return json.MarshalIndent(h.vars, "", "  ")
}

// YAML renders the inventory as a static Ansible YAML inventory. Host
// variables live under all.hosts; groups reference member hosts with empty
// bodies, and child groups are inlined under their parent.
func (inv *Inventory) YAML() ([]byte, error) {
	hosts := make(map[string]interface{}, len(inv.hosts))
	for name, h := range inv.hosts {
		hosts[name] = h.vars
	}

	children := make(map[string]interface{})
	for _, name := range inv.topLevelGroups() {
		children[name] = inv.yamlGroup(name)
	}

	doc := map[string]interface{}{
		"all": map[string]interface{}{
			"hosts":    hosts,
			"children": children,
		},
	}
	return yaml.Marshal(doc)
}

// topLevelGroups returns groups that are nobody's child, sorted.
func (inv *Inventory) topLevelGroups() []string {
	isChild := make(map[string]bool)
	for _, g := range inv.groups {
		for child := range g.children {
			isChild[child] = true
		}
	}
	var top []string
	for _, name := range inv.GroupNames() {
		if !isChild[name] {
			top = append(top, name)
		}
	}
	return top
}

// yamlGroup renders one group and its subtree for the YAML exporter.
func (inv *Inventory) yamlGroup(name string) map[string]interface{} {
	g := inv.groups[name]
	body := make(map[string]interface{})
	if len(g.hosts) > 0 {
		members := make(map[string]interface{}, len(g.hosts))
		for h := range g.hosts {
			members[h] = map[string]interface{}{}
		}
		body["hosts"] = members
	}
	if len(g.children) > 0 {
		children := make(map[string]interface{}, len(g.children))
		for child := range g.children {
			children[child] = inv.yamlGroup(child)
		}
		body["children"] = children
	}
	if len(g.vars) > 0 {
		body["vars"] = g.vars
	}
	return body
}

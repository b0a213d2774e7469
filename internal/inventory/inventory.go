// Package inventory holds the hierarchical group/host graph that discovery
// projects into, plus exporters for the Ansible dynamic inventory protocol.
package inventory

import (
	"fmt"
	"sort"
	"strings"
)

// Sink is the consumer-side contract discovery writes into. Group and host
// additions are idempotent; a host must exist before variables are set on it.
type Sink interface {
	// AddGroup creates a group. Names are case-insensitive and stored
	// lowercase; re-adding is a no-op.
	AddGroup(name string)
	// AddHost creates a host and, when group is non-empty, makes it a
	// member of that group (creating the group if needed).
	AddHost(name, group string)
	// AddChild links child under parent. Both groups are created if
	// absent. Linking a group under itself is a no-op.
	AddChild(parent, child string)
	// SetVariable sets a key on a host or group. The target must already
	// have been added.
	SetVariable(target, key string, value interface{}) error
}

// group is one node of the inventory graph.
type group struct {
	hosts    map[string]bool
	children map[string]bool
	vars     map[string]interface{}
}

// host is a managed node plus its variables.
type host struct {
	vars map[string]interface{}
}

// Inventory is the in-memory implementation of Sink. Not safe for
// concurrent use; discovery populates it from a single goroutine.
type Inventory struct {
	groups map[string]*group
	hosts  map[string]*host
}

var _ Sink = (*Inventory)(nil)

// New returns an empty inventory.
func New() *Inventory {
	return &Inventory{
		groups: make(map[string]*group),
		hosts:  make(map[string]*host),
	}
}

// normalizeGroup maps a group name to its canonical lowercase form.
func normalizeGroup(name string) string {
	return strings.ToLower(name)
}

// AddGroup creates the group if it does not exist.
func (inv *Inventory) AddGroup(name string) {
	inv.ensureGroup(name)
}

func (inv *Inventory) ensureGroup(name string) *group {
	name = normalizeGroup(name)
	g, ok := inv.groups[name]
	if !ok {
		g = &group{
			hosts:    make(map[string]bool),
			children: make(map[string]bool),
			vars:     make(map[string]interface{}),
		}
		inv.groups[name] = g
	}
	return g
}

// AddHost creates the host if it does not exist and optionally adds it to a
// group.
func (inv *Inventory) AddHost(name, grp string) {
	if _, ok := inv.hosts[name]; !ok {
		inv.hosts[name] = &host{vars: make(map[string]interface{})}
	}
	if grp != "" {
		inv.ensureGroup(grp).hosts[name] = true
	}
}

// AddChild links child under parent, creating either group as needed. A
// self-referential edge is silently dropped.
func (inv *Inventory) AddChild(parent, child string) {
	parent = normalizeGroup(parent)
	child = normalizeGroup(child)
	if parent == child {
		return
	}
	inv.ensureGroup(child)
	inv.ensureGroup(parent).children[child] = true
}

// SetVariable sets key on a host, or on a group when no host matches.
func (inv *Inventory) SetVariable(target, key string, value interface{}) error {
	if h, ok := inv.hosts[target]; ok {
		h.vars[key] = value
		return nil
	}
	if g, ok := inv.groups[normalizeGroup(target)]; ok {
		g.vars[key] = value
		return nil
	}
	return fmt.Errorf("inventory: cannot set variable %q on unknown target %q", key, target)
}

// HasGroup reports whether the named group exists.
func (inv *Inventory) HasGroup(name string) bool {
	_, ok := inv.groups[normalizeGroup(name)]
	return ok
}

// HasHost reports whether the named host exists.
func (inv *Inventory) HasHost(name string) bool {
	_, ok := inv.hosts[name]
	return ok
}

// GroupNames returns every group name, sorted.
func (inv *Inventory) GroupNames() []string {
	names := make([]string, 0, len(inv.groups))
	for name := range inv.groups {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HostNames returns every host name, sorted.
func (inv *Inventory) HostNames() []string {
	names := make([]string, 0, len(inv.hosts))
	for name := range inv.hosts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GroupHosts returns the sorted member hosts of a group, or nil if the
// group does not exist.
func (inv *Inventory) GroupHosts(name string) []string {
	g, ok := inv.groups[normalizeGroup(name)]
	if !ok {
		return nil
	}
	return sortedKeys(g.hosts)
}

// Children returns the sorted child groups of a group.
func (inv *Inventory) Children(name string) []string {
	g, ok := inv.groups[normalizeGroup(name)]
	if !ok {
		return nil
	}
	return sortedKeys(g.children)
}

// HostVars returns the variable map of a host, or nil if it does not exist.
func (inv *Inventory) HostVars(name string) map[string]interface{} {
	h, ok := inv.hosts[name]
	if !ok {
		return nil
	}
	return h.vars
}

// GroupVars returns the variable map of a group, or nil if it does not
// exist.
func (inv *Inventory) GroupVars(name string) map[string]interface{} {
	g, ok := inv.groups[normalizeGroup(name)]
	if !ok {
		return nil
	}
	return g.vars
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

package api

// Owner identifies the organization an instance belongs to.
type Owner struct {
	ID       string `json:"id" yaml:"id"`
	Username string `json:"username" yaml:"username"`
}

// Instance is the subset of an instance record the dependency engine consumes.
// Records are owned by the instance lifecycle; the engine only reads them.
type Instance struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	LowerName string `json:"lowerName"`
	ShortHash string `json:"shortHash"`
	Owner     Owner  `json:"owner"`

	// ElasticHostname is derived from the logical name, owner and environment
	// class. An original and its isolated fork share it.
	ElasticHostname string `json:"elasticHostname"`

	// Env is the ordered KEY=VALUE environment list.
	Env []string `json:"env,omitempty"`

	// IsolatedID references the isolation group, empty when not isolated.
	IsolatedID             string `json:"isolated,omitempty"`
	IsIsolationGroupMaster bool   `json:"isIsolationGroupMaster,omitempty"`

	// Build identity of the instance's current container image.
	ContextID        string `json:"contextId,omitempty"`
	ContextVersionID string `json:"contextVersionId,omitempty"`
}

// IsIsolated reports whether the instance belongs to an isolation group.
func (i *Instance) IsIsolated() bool {
	return i.IsolatedID != ""
}

// LogicalName returns the instance name with any isolation prefix stripped.
func (i *Instance) LogicalName() string {
	return LogicalName(i.LowerName, i.IsIsolated(), i.IsIsolationGroupMaster)
}

// Node converts the instance to the attributes cached on its graph node.
func (i *Instance) Node() Node {
	return Node{
		ID:                     i.ID,
		ShortHash:              i.ShortHash,
		Name:                   i.Name,
		LowerName:              i.LowerName,
		Owner:                  i.Owner,
		Hostname:               i.ElasticHostname,
		IsolatedID:             i.IsolatedID,
		IsIsolationGroupMaster: i.IsIsolationGroupMaster,
		ContextID:              i.ContextID,
		ContextVersionID:       i.ContextVersionID,
	}
}

// Node is one vertex of the dependency graph. It caches the instance attributes
// needed to render a dependency without a directory lookup.
type Node struct {
	ID                     string `json:"id"`
	ShortHash              string `json:"shortHash"`
	Name                   string `json:"name"`
	LowerName              string `json:"lowerName"`
	Owner                  Owner  `json:"owner"`
	Hostname               string `json:"hostname"`
	IsolatedID             string `json:"isolated,omitempty"`
	IsIsolationGroupMaster bool   `json:"isIsolationGroupMaster,omitempty"`
	ContextID              string `json:"contextId,omitempty"`
	ContextVersionID       string `json:"contextVersionId,omitempty"`
}

// LogicalName returns the node's name with any isolation prefix stripped.
func (n *Node) LogicalName() string {
	return LogicalName(n.LowerName, n.IsolatedID != "", n.IsIsolationGroupMaster)
}

// Edge is a directed dependency: From depends on To. Hostname is the literal
// hostname From used to reach To when the edge was written.
type Edge struct {
	From     string `json:"from"`
	To       string `json:"to"`
	Hostname string `json:"hostname"`
}

// Dependency is the denormalized view of a node reached over an edge, as
// returned by dependency reads.
type Dependency struct {
	ID                     string `json:"id"`
	ShortHash              string `json:"shortHash"`
	LowerName              string `json:"lowerName"`
	Name                   string `json:"name"`
	Owner                  Owner  `json:"owner"`
	Hostname               string `json:"hostname"`
	ContextID              string `json:"contextId,omitempty"`
	ContextVersionID       string `json:"contextVersionId,omitempty"`
	IsolatedID             string `json:"isolated,omitempty"`
	IsIsolationGroupMaster bool   `json:"isIsolationGroupMaster,omitempty"`

	// Dependencies holds nested dependencies for recursive reads.
	Dependencies []*Dependency `json:"dependencies,omitempty"`
}

// NewDependency builds a dependency snapshot from a node and the hostname
// attribute of the edge that reached it.
func NewDependency(n *Node, hostname string) *Dependency {
	return &Dependency{
		ID:                     n.ID,
		ShortHash:              n.ShortHash,
		LowerName:              n.LowerName,
		Name:                   n.Name,
		Owner:                  n.Owner,
		Hostname:               hostname,
		ContextID:              n.ContextID,
		ContextVersionID:       n.ContextVersionID,
		IsolatedID:             n.IsolatedID,
		IsIsolationGroupMaster: n.IsIsolationGroupMaster,
	}
}

// LogicalName returns the dependency's name with any isolation prefix stripped.
func (d *Dependency) LogicalName() string {
	return LogicalName(d.LowerName, d.IsolatedID != "", d.IsIsolationGroupMaster)
}

// Shallow returns a copy without nested dependencies.
func (d *Dependency) Shallow() *Dependency {
	c := *d
	c.Dependencies = nil
	return &c
}

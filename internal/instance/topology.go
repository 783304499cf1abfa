package instance

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"tether/internal/api"
	"tether/internal/hostname"
	"tether/pkg/logging"
)

const shortHashLength = 6

// topologyNamespace seeds ids derived for topology items without one, so the
// same file yields the same ids on every load.
var topologyNamespace = uuid.MustParse("6f1c3a52-9d0e-4b8a-a3f7-2c5e8d41b907")

// Topology is the on-disk description of a set of instances.
type Topology struct {
	// Owner applies to every instance that does not name its own.
	Owner     api.Owner      `yaml:"owner"`
	Instances []TopologyItem `yaml:"instances"`
}

// TopologyItem describes one instance. Only Name is required.
type TopologyItem struct {
	ID               string     `yaml:"id,omitempty"`
	Name             string     `yaml:"name"`
	ShortHash        string     `yaml:"shortHash,omitempty"`
	Owner            *api.Owner `yaml:"owner,omitempty"`
	Env              []string   `yaml:"env,omitempty"`
	Isolated         string     `yaml:"isolated,omitempty"`
	Master           bool       `yaml:"master,omitempty"`
	ContextID        string     `yaml:"contextId,omitempty"`
	ContextVersionID string     `yaml:"contextVersionId,omitempty"`
}

// LoadTopology reads a YAML topology file into a MemoryDirectory.
func LoadTopology(path string, gen *hostname.Generator) (*MemoryDirectory, error) {
	instances, err := ReadTopology(path, gen)
	if err != nil {
		return nil, err
	}
	return NewMemoryDirectory(instances...), nil
}

// ReadTopology reads and parses a YAML topology file.
func ReadTopology(path string, gen *hostname.Generator) ([]*api.Instance, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read topology %s: %w", path, err)
	}
	instances, err := ParseTopology(data, gen)
	if err != nil {
		return nil, fmt.Errorf("failed to load topology %s: %w", path, err)
	}
	logging.Info("Directory", "Loaded %d instances from %s", len(instances), path)
	return instances, nil
}

// ParseTopology decodes a topology document and fills in derived fields:
// ids, short hashes, lower-cased names and elastic hostnames.
func ParseTopology(data []byte, gen *hostname.Generator) ([]*api.Instance, error) {
	var topo Topology
	if err := yaml.Unmarshal(data, &topo); err != nil {
		return nil, fmt.Errorf("invalid topology yaml: %w", err)
	}

	seen := make(map[string]bool, len(topo.Instances))
	out := make([]*api.Instance, 0, len(topo.Instances))
	for i, item := range topo.Instances {
		if strings.TrimSpace(item.Name) == "" {
			return nil, fmt.Errorf("instances[%d]: name is required", i)
		}
		if item.Master && item.Isolated == "" {
			return nil, fmt.Errorf("instances[%d] (%s): master requires isolated", i, item.Name)
		}

		owner := topo.Owner
		if item.Owner != nil {
			owner = *item.Owner
		}
		if owner.Username == "" {
			return nil, fmt.Errorf("instances[%d] (%s): owner username is required", i, item.Name)
		}
		if owner.ID == "" {
			owner.ID = owner.Username
		}

		inst := &api.Instance{
			ID:                     item.ID,
			Name:                   item.Name,
			LowerName:              strings.ToLower(item.Name),
			ShortHash:              item.ShortHash,
			Owner:                  owner,
			Env:                    item.Env,
			IsolatedID:             item.Isolated,
			IsIsolationGroupMaster: item.Master,
			ContextID:              item.ContextID,
			ContextVersionID:       item.ContextVersionID,
		}
		if inst.ID == "" {
			inst.ID = uuid.NewSHA1(topologyNamespace, []byte(owner.ID+"/"+inst.LowerName)).String()
		}
		if seen[inst.ID] {
			return nil, fmt.Errorf("instances[%d] (%s): duplicate id %s", i, item.Name, inst.ID)
		}
		seen[inst.ID] = true

		if inst.ShortHash == "" {
			inst.ShortHash = ShortHash(owner.ID, inst.LowerName)
		}

		host, err := gen.Generate(inst.LogicalName(), owner.Username)
		if err != nil {
			return nil, fmt.Errorf("instances[%d] (%s): %w", i, item.Name, err)
		}
		inst.ElasticHostname = host

		out = append(out, inst)
	}
	return out, nil
}

// ShortHash derives a stable dash-free short hash from an owner and a name.
func ShortHash(ownerID, lowerName string) string {
	h := strconv.FormatUint(xxhash.Sum64String(ownerID+"/"+lowerName), 36)
	if len(h) > shortHashLength {
		h = h[:shortHashLength]
	}
	return h
}

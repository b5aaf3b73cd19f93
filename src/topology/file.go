package topology

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

type nodeFile struct {
	Alias        string   `yaml:"alias"`
	TrustedPeers []string `yaml:"trusted_peers"`
	Leadership   string   `yaml:"leadership"`
	Persistence  string   `yaml:"persistence"`
}

type topologyFile struct {
	Nodes []nodeFile `yaml:"nodes"`
}

// Decode reads node declarations from a YAML document of the form
//
//	nodes:
//	  - alias: leader1
//	  - alias: passive1
//	    trusted_peers: [leader1]
//	    leadership: passive
//	    persistence: persistent
func Decode(r io.Reader) ([]NodeDescriptor, error) {
	var f topologyFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("decoding topology: %w", err)
	}

	res := make([]NodeDescriptor, 0, len(f.Nodes))
	for _, n := range f.Nodes {
		lm, err := ParseLeadershipMode(n.Leadership)
		if err != nil {
			return nil, fmt.Errorf("node '%s': %w", n.Alias, err)
		}
		pm, err := ParsePersistenceMode(n.Persistence)
		if err != nil {
			return nil, fmt.Errorf("node '%s': %w", n.Alias, err)
		}
		res = append(res, NodeDescriptor{
			Alias:        n.Alias,
			TrustedPeers: n.TrustedPeers,
			Leadership:   lm,
			Persistence:  pm,
		})
	}
	return res, nil
}

// LoadFile decodes and builds the topology stored in a YAML file.
func LoadFile(path string) (*Topology, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	descriptors, err := Decode(f)
	if err != nil {
		return nil, err
	}
	return Build(descriptors)
}

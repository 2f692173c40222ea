// Package serverconfig reads the server configuration file: settings to
// import plus the desired cluster topology.
package serverconfig

import (
	"context"
	"fmt"
	"strings"

	"github.com/CodeMonkeyCybersecurity/hestia/pkg/hestia_io"
	"k8s.io/apimachinery/pkg/util/sets"
)

// DefaultGatewayPort is used when the configuration names no gateway port.
const DefaultGatewayPort = "80"

// Config is a loaded configuration file. The document is kept generic since
// most of it is passed through to the administration tool untouched.
type Config struct {
	Path string
	raw  map[string]any
}

// Load reads the configuration file at path.
func Load(ctx context.Context, path string) (*Config, error) {
	raw := map[string]any{}
	if err := hestia_io.ReadStructuredFile(ctx, path, &raw); err != nil {
		return nil, err
	}
	return &Config{Path: path, raw: raw}, nil
}

// New wraps an already decoded document.
func New(path string, raw map[string]any) *Config {
	if raw == nil {
		raw = map[string]any{}
	}
	return &Config{Path: path, raw: raw}
}

// GatewayPort resolves the gateway port. configKeys["gateway.port"] wins over
// configEntities.gatewaySettings.port; warning is non-empty when the key
// overrode the entity or when neither was set and the default applies.
func (c *Config) GatewayPort() (port, warning string) {
	entity, hasEntity := lookup(c.raw, "configEntities", "gatewaySettings", "port")
	keys, _ := c.raw["configKeys"].(map[string]any)
	key, hasKey := keys["gateway.port"]
	hasKey = hasKey && key != nil

	switch {
	case hasKey && hasEntity:
		port = scalar(key)
		return port, "gateway.port key specified twice in the configuration template, using value of " + port
	case hasKey:
		return scalar(key), ""
	case hasEntity:
		return scalar(entity), ""
	default:
		return DefaultGatewayPort, "No gateway port specified, defaulting to port " + DefaultGatewayPort + "."
	}
}

// DesiredNodes returns the node identifiers under topologyVersion.nodes.
// A missing section is the empty set.
func (c *Config) DesiredNodes() sets.Set[string] {
	desired := sets.New[string]()
	nodes, ok := lookup(c.raw, "topologyVersion", "nodes")
	if !ok {
		return desired
	}
	switch n := nodes.(type) {
	case map[string]any:
		for id := range n {
			desired.Insert(id)
		}
	case []any:
		for _, id := range n {
			desired.Insert(scalar(id))
		}
	}
	return desired
}

func lookup(m map[string]any, path ...string) (any, bool) {
	var cur any = m
	for _, p := range path {
		node, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		if cur, ok = node[p]; !ok || cur == nil {
			return nil, false
		}
	}
	return cur, true
}

func scalar(v any) string {
	return strings.TrimSpace(fmt.Sprint(v))
}

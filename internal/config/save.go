package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/pulsetrace/pulse/internal/fsutil"
	"github.com/pulsetrace/pulse/internal/log"
)

// Save writes the connection fields into the config file at configPath.
// Comments and all other keys are preserved by editing the yaml.Node tree; a
// missing file starts from DefaultConfigTemplate. The file is replaced
// atomically and left readable only by the owner.
func Save(configPath string, conn Connection) error {
	data, exists, err := fsutil.ReadFileIfExists(configPath)
	if err != nil {
		return fmt.Errorf("reading config: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		data = []byte(DefaultConfigTemplate())
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parsing config: %w", err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		return fmt.Errorf("parsing config: top level of %s is not a mapping", configPath)
	}
	root := doc.Content[0]

	setScalar(root, "api_url", strings.TrimRight(strings.TrimSpace(conn.APIURL), "/"))
	setScalar(root, "api_key", strings.TrimSpace(conn.APIKey))
	setScalar(root, "project_id", strings.TrimSpace(conn.ProjectID))

	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(&doc); err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	_ = encoder.Close()

	if err := fsutil.WriteFileAtomic(configPath, buf.Bytes(), 0o600); err != nil {
		log.ErrorErr(log.CatConfig, "Failed to write config", err, "path", configPath)
		return fmt.Errorf("writing config: %w", err)
	}
	if exists {
		// The file holds an API key; tighten a pre-existing looser mode.
		if err := os.Chmod(configPath, 0o600); err != nil {
			return fmt.Errorf("securing config: %w", err)
		}
	}
	log.Info(log.CatConfig, "Saved connection", "path", configPath, "created", !exists)
	return nil
}

// setScalar replaces the value of key in a mapping node, or appends the
// pair. Comments attached to an existing value are kept.
func setScalar(mapping *yaml.Node, key, value string) {
	for i := 0; i < len(mapping.Content)-1; i += 2 {
		if mapping.Content[i].Value != key {
			continue
		}
		v := mapping.Content[i+1]
		if v.Kind != yaml.ScalarNode {
			mapping.Content[i+1] = &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: value}
			return
		}
		v.Tag = "!!str"
		v.Style = 0
		v.Value = value
		return
	}
	mapping.Content = append(mapping.Content,
		&yaml.Node{Kind: yaml.ScalarNode, Value: key},
		&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: value},
	)
}

// DefaultConfigTemplate returns the commented config `pulse init` starts from.
func DefaultConfigTemplate() string {
	return `# Pulse configuration

# Trace service connection (written by 'pulse init')
api_url: ""
api_key: ""
project_id: ""

# Executable that agent hooks invoke (default: pulse)
# command: /usr/local/bin/pulse

# Upper bound for one 'pulse emit' invocation (default: 2s)
# emit_timeout: 2s

# Debug log, also enabled by --debug or PULSE_DEBUG=1
# debug: false
# log_path: ~/.pulse/debug.log

# Mirror emitted spans into OpenTelemetry (needs flags.otel-mirror)
# tracing:
#   enabled: false
#   exporter: file                 # none, file, stdout, otlp
#   file_path: ~/.pulse/traces.jsonl
#   otlp_endpoint: localhost:4317
#   sample_rate: 1.0

# Feature flags
# flags:
#   otel-mirror: false
#   auto-repair: false
`
}

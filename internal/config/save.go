package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// settableKeys lists the dotted keys SaveSetting accepts. Anything else is
// rejected rather than silently written and ignored by the loader.
var settableKeys = map[string]bool{
	"workers":               true,
	"shell":                 true,
	"poll_interval":         true,
	"paused_backoff":        true,
	"console.mode":          true,
	"log.path":              true,
	"log.level":             true,
	"tracing.enabled":       true,
	"tracing.exporter":      true,
	"tracing.file_path":     true,
	"tracing.otlp_endpoint": true,
	"tracing.sample_rate":   true,
}

// SettableKeys returns the dotted keys SaveSetting accepts, sorted.
func SettableKeys() []string {
	keys := make([]string, 0, len(settableKeys))
	for k := range settableKeys {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// SaveSetting updates a single setting in the config file by key, using dot
// notation for nested sections (e.g. "workers", "console.mode").
// Comments and formatting in untouched sections are preserved by editing
// the YAML node tree rather than re-marshaling the whole config.
// The updated document is validated before anything is written.
func SaveSetting(configPath, key, value string) error {
	if !settableKeys[key] {
		return fmt.Errorf("unknown setting %q (valid: %s)", key, strings.Join(SettableKeys(), ", "))
	}

	// Read existing file content
	data, err := os.ReadFile(configPath)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("reading config: %w", err)
	}

	// Parse into yaml.Node to preserve comments
	var doc yaml.Node
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("parsing config: %w", err)
		}
	}
	if doc.Kind == 0 {
		// Empty or new file - create document structure
		doc = yaml.Node{
			Kind:    yaml.DocumentNode,
			Content: []*yaml.Node{{Kind: yaml.MappingNode}},
		}
	}
	if len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		return fmt.Errorf("config root is not a mapping")
	}

	setPath(doc.Content[0], strings.Split(key, "."), value)

	// Marshal back to YAML
	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(&doc); err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	_ = encoder.Close()

	// Refuse to persist a config that would fail to load
	if err := validateDocument(buf.Bytes()); err != nil {
		return err
	}

	return writeAtomic(configPath, buf.Bytes())
}

// setPath walks the mapping along the dotted path, creating intermediate
// mappings as needed, and replaces the leaf with a plain scalar.
func setPath(mapping *yaml.Node, path []string, value string) {
	name := path[0]

	for i := 0; i < len(mapping.Content)-1; i += 2 {
		if mapping.Content[i].Value != name {
			continue
		}
		if len(path) == 1 {
			mapping.Content[i+1] = &yaml.Node{Kind: yaml.ScalarNode, Value: value}
			return
		}
		child := mapping.Content[i+1]
		if child.Kind != yaml.MappingNode {
			child = &yaml.Node{Kind: yaml.MappingNode}
			mapping.Content[i+1] = child
		}
		setPath(child, path[1:], value)
		return
	}

	// Key not present: append it
	keyNode := &yaml.Node{Kind: yaml.ScalarNode, Value: name}
	if len(path) == 1 {
		mapping.Content = append(mapping.Content, keyNode,
			&yaml.Node{Kind: yaml.ScalarNode, Value: value})
		return
	}
	child := &yaml.Node{Kind: yaml.MappingNode}
	mapping.Content = append(mapping.Content, keyNode, child)
	setPath(child, path[1:], value)
}

// validateDocument parses the candidate config the same way the CLI loads
// it and runs full validation.
func validateDocument(data []byte) error {
	v := viper.New()
	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
		return fmt.Errorf("parsing updated config: %w", err)
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return fmt.Errorf("decoding updated config: %w", err)
	}
	return Validate(cfg)
}

// writeAtomic writes to a temp file in the target directory, then renames.
func writeAtomic(configPath string, data []byte) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	temp, err := os.CreateTemp(dir, ".scatter.yaml.tmp.*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tempPath := temp.Name()

	if _, err := temp.Write(data); err != nil {
		_ = temp.Close()
		_ = os.Remove(tempPath)
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := temp.Close(); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("closing temp file: %w", err)
	}

	if err := os.Rename(tempPath, configPath); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}

	return nil
}

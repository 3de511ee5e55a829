// Package prompt loads agent instructions, the routing vocabulary and the
// banking collection schemas from a YAML source. Loading is fail-fast: a
// missing role instruction or vocabulary category is a startup error, never a
// silent default.
package prompt

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/viper"

	"github.com/bankdesk/bankdesk/core"
)

//go:embed prompts.yaml
var defaultPrompts []byte

// PlaceholderUserID is substituted per invocation from thread state.
const PlaceholderUserID = "{user_id}"

// placeholderSchema is substituted once at load time.
const placeholderSchema = "{db_schema}"

// Vocabulary holds the intent word bags used by the routing stage. Category
// order is fixed: transaction is checked first, then product, then hybrid.
type Vocabulary struct {
	Transaction []string
	Product     []string
	Hybrid      []string
}

// field is one documented column of a collection schema.
type field struct {
	name string
	desc string
}

// collection is a named banking collection with documented fields.
type collection struct {
	name        string
	description string
	fields      []field
}

// Config is the immutable prompt/schema source handed to agent constructors.
// It is fully resolved at Load time except for the per-invocation
// {user_id} placeholder, which the executor substitutes from thread state.
type Config struct {
	instructions map[core.Role]string
	vocabulary   Vocabulary
	collections  []collection
}

// yamlRoleKeys maps engine roles to their keys in the YAML source.
var yamlRoleKeys = map[core.Role]string{
	core.RoleOrchestrator:   "orchestrator",
	core.RoleStructuredData: "structured_data",
	core.RoleRetrieval:      "retrieval",
	core.RoleSynthesizer:    "synthesizer",
}

// Load reads the prompt configuration from path, or from the embedded
// defaults when path is empty. Any missing role instruction or vocabulary
// category fails the load.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read prompts file: %w", err)
		}
		if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
			return nil, fmt.Errorf("parse prompts file %s: %w", path, err)
		}
	} else if err := v.ReadConfig(bytes.NewReader(defaultPrompts)); err != nil {
		return nil, fmt.Errorf("parse embedded prompts: %w", err)
	}

	cfg := &Config{instructions: map[core.Role]string{}}

	for role, key := range yamlRoleKeys {
		instruction := v.GetString("agents." + key + ".instruction")
		if strings.TrimSpace(instruction) == "" {
			return nil, fmt.Errorf("prompt config: missing instruction for role %q", role)
		}
		cfg.instructions[role] = instruction
	}

	var err error
	if cfg.vocabulary.Transaction, err = words(v, "intents.transaction"); err != nil {
		return nil, err
	}
	if cfg.vocabulary.Product, err = words(v, "intents.product"); err != nil {
		return nil, err
	}
	if cfg.vocabulary.Hybrid, err = words(v, "intents.hybrid"); err != nil {
		return nil, err
	}

	cfg.collections = loadCollections(v)

	// Resolve the schema placeholder now; the retrieval agent never sees
	// the transactions collection.
	cfg.instructions[core.RoleStructuredData] = strings.ReplaceAll(
		cfg.instructions[core.RoleStructuredData], placeholderSchema, cfg.SchemaDescription())
	cfg.instructions[core.RoleRetrieval] = strings.ReplaceAll(
		cfg.instructions[core.RoleRetrieval], placeholderSchema, cfg.SchemaDescription("transactions"))

	return cfg, nil
}

func words(v *viper.Viper, key string) ([]string, error) {
	raw := v.GetString(key)
	fields := strings.Fields(strings.ToLower(raw))
	if len(fields) == 0 {
		return nil, fmt.Errorf("prompt config: missing vocabulary %q", key)
	}
	return fields, nil
}

func loadCollections(v *viper.Viper) []collection {
	raw := v.GetStringMap("collections")
	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	sort.Strings(names)

	cols := make([]collection, 0, len(names))
	for _, name := range names {
		col := collection{
			name:        name,
			description: v.GetString("collections." + name + ".description"),
		}
		fieldsRaw := v.GetStringMapString("collections." + name + ".fields")
		fieldNames := make([]string, 0, len(fieldsRaw))
		for fn := range fieldsRaw {
			fieldNames = append(fieldNames, fn)
		}
		sort.Strings(fieldNames)
		for _, fn := range fieldNames {
			col.fields = append(col.fields, field{name: fn, desc: fieldsRaw[fn]})
		}
		cols = append(cols, col)
	}
	return cols
}

// Instruction returns the resolved instruction text for role. The returned
// text may still contain the {user_id} placeholder.
func (c *Config) Instruction(role core.Role) (string, error) {
	instruction, ok := c.instructions[role]
	if !ok {
		return "", fmt.Errorf("prompt config: no instruction for role %q", role)
	}
	return instruction, nil
}

// IntentVocabulary returns the routing word bags.
func (c *Config) IntentVocabulary() Vocabulary { return c.vocabulary }

// SchemaDescription renders the collection schemas as prompt text. Named
// collections are excluded from the rendering.
func (c *Config) SchemaDescription(exclude ...string) string {
	excluded := map[string]bool{}
	for _, name := range exclude {
		excluded[name] = true
	}

	var b strings.Builder
	b.WriteString("Database schema:\n")
	for _, col := range c.collections {
		if excluded[col.name] {
			continue
		}
		b.WriteString("\nCollection: " + col.name + "\n")
		if col.description != "" {
			b.WriteString("Description: " + col.description + "\n")
		}
		for _, f := range col.fields {
			b.WriteString("  - " + f.name + ": " + f.desc + "\n")
		}
	}
	return b.String()
}

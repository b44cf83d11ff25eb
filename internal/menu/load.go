package menu

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed default_menu.yaml
var defaultMenuYAML []byte

// Table maps a key (trigger text or postback code) to ordered reply payloads.
type Table map[string][]json.RawMessage

// Menu is the immutable decision tree consulted for every inbound event.
type Menu struct {
	// Escalate maps an operator hand-off postback code to the text posted
	// into the operator conversation.
	Escalate map[string]string
	Message  Table
	Postback Table
}

type menuFile struct {
	Escalate map[string]string `yaml:"escalate"`
	Message  map[string][]any  `yaml:"message"`
	Postback map[string][]any  `yaml:"postback"`
}

// Default parses the embedded menu.
func Default(vars map[string]string) (Menu, error) {
	return Parse(defaultMenuYAML, vars)
}

// LoadFile parses the menu at path, falling back to the embedded default when path is empty.
func LoadFile(path string, vars map[string]string) (Menu, error) {
	if strings.TrimSpace(path) == "" {
		return Default(vars)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return Menu{}, fmt.Errorf("read menu: %w", err)
	}
	return Parse(raw, vars)
}

// Parse decodes a YAML menu and expands ${NAME} placeholders in string values.
// Unknown placeholders are left untouched.
func Parse(raw []byte, vars map[string]string) (Menu, error) {
	var file menuFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return Menu{}, fmt.Errorf("decode menu: %w", err)
	}
	m := Menu{
		Escalate: make(map[string]string, len(file.Escalate)),
		Message:  Table{},
		Postback: Table{},
	}
	for code, text := range file.Escalate {
		code = strings.TrimSpace(code)
		if code == "" || strings.TrimSpace(text) == "" {
			return Menu{}, fmt.Errorf("escalate entry %q: code and text are required", code)
		}
		m.Escalate[code] = expand(text, vars)
	}
	var err error
	if m.Message, err = buildTable("message", file.Message, vars); err != nil {
		return Menu{}, err
	}
	if m.Postback, err = buildTable("postback", file.Postback, vars); err != nil {
		return Menu{}, err
	}
	for code := range m.Escalate {
		if _, ok := m.Postback[code]; ok {
			return Menu{}, fmt.Errorf("postback %q is both an escalate code and a menu entry", code)
		}
	}
	return m, nil
}

func buildTable(section string, entries map[string][]any, vars map[string]string) (Table, error) {
	table := make(Table, len(entries))
	for key, payloads := range entries {
		replies := make([]json.RawMessage, 0, len(payloads))
		for i, payload := range payloads {
			if payload == nil {
				// Null entries are kept so indexes match the file; they are never pushed.
				replies = append(replies, json.RawMessage("null"))
				continue
			}
			obj, ok := payload.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("%s %q[%d]: payload must be a mapping", section, key, i)
			}
			if t, _ := obj["type"].(string); strings.TrimSpace(t) == "" {
				return nil, fmt.Errorf("%s %q[%d]: payload type is required", section, key, i)
			}
			encoded, err := json.Marshal(expandValue(obj, vars))
			if err != nil {
				return nil, fmt.Errorf("%s %q[%d]: %w", section, key, i, err)
			}
			replies = append(replies, encoded)
		}
		table[key] = replies
	}
	return table, nil
}

func expandValue(v any, vars map[string]string) any {
	switch val := v.(type) {
	case string:
		return expand(val, vars)
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = expandValue(item, vars)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = expandValue(item, vars)
		}
		return out
	default:
		return v
	}
}

var placeholderPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

func expand(s string, vars map[string]string) string {
	return placeholderPattern.ReplaceAllStringFunc(s, func(match string) string {
		name := match[2 : len(match)-1]
		if value, ok := vars[name]; ok {
			return value
		}
		return match
	})
}

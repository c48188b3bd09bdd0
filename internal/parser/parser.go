// Package parser reads and writes the Laguz note file format: YAML
// frontmatter carrying the collection metadata (id, title, created, stacks,
// label) followed by a Markdown body.
package parser

import (
	"bytes"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Result holds the metadata extracted from a note file.
type Result struct {
	Frontmatter map[string]interface{}
	Body        string
	ID          string
	Title       string
	Created     int64 // epoch milliseconds; 0 when absent
	Stacks      []string
	Label       string
}

// Parse extracts frontmatter and metadata from raw note bytes.
func Parse(data []byte) (*Result, error) {
	fm, body, err := splitFrontmatter(data)
	if err != nil {
		return nil, err
	}

	return &Result{
		Frontmatter: fm,
		Body:        body,
		ID:          stringField(fm, "id"),
		Title:       deriveTitle(fm, body),
		Created:     intField(fm, "created"),
		Stacks:      stringListField(fm, "stacks"),
		Label:       stringField(fm, "label"),
	}, nil
}

// frontmatter is the serialised shape written by Compose. Field order is
// fixed so rewrites produce stable diffs under version control.
type frontmatter struct {
	ID      string   `yaml:"id"`
	Title   string   `yaml:"title"`
	Created int64    `yaml:"created"`
	Stacks  []string `yaml:"stacks,omitempty"`
	Label   string   `yaml:"label,omitempty"`
}

// Compose renders a note file from its metadata and body.
func Compose(id, title string, created int64, stacks []string, label, body string) ([]byte, error) {
	fm := frontmatter{ID: id, Title: title, Created: created, Stacks: stacks, Label: label}
	block, err := yaml.Marshal(&fm)
	if err != nil {
		return nil, fmt.Errorf("parser: marshal frontmatter: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString("---\n")
	buf.Write(block)
	buf.WriteString("---\n")
	if body != "" {
		buf.WriteString("\n")
		buf.WriteString(body)
		if !strings.HasSuffix(body, "\n") {
			buf.WriteString("\n")
		}
	}
	return buf.Bytes(), nil
}

// splitFrontmatter separates YAML frontmatter (between leading --- delimiters)
// from the body. If no frontmatter is found the entire content is body.
func splitFrontmatter(data []byte) (map[string]interface{}, string, error) {
	const delim = "---"
	trimmed := bytes.TrimLeft(data, "\n\r")

	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return nil, string(data), nil
	}

	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		// No closing delimiter, treat everything as body.
		return nil, string(data), nil
	}

	yamlBlock := rest[:idx]
	afterDelim := rest[idx+1+len(delim):]
	body := strings.TrimLeft(string(afterDelim), "\n\r")

	var fm map[string]interface{}
	if err := yaml.Unmarshal(yamlBlock, &fm); err != nil {
		// Invalid YAML degrades to body-only rather than failing the load.
		return nil, string(data), nil
	}

	return fm, body, nil
}

// deriveTitle returns the frontmatter "title" if present, otherwise the first
// H1 heading, otherwise empty string.
func deriveTitle(fm map[string]interface{}, body string) string {
	if t := stringField(fm, "title"); t != "" {
		return t
	}
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(trimmed[2:])
		}
	}
	return ""
}

func stringField(fm map[string]interface{}, key string) string {
	if fm == nil {
		return ""
	}
	if s, ok := fm[key].(string); ok {
		return s
	}
	return ""
}

func intField(fm map[string]interface{}, key string) int64 {
	if fm == nil {
		return 0
	}
	switch v := fm[key].(type) {
	case int:
		return int64(v)
	case int64:
		return v
	case uint64:
		return int64(v)
	case float64:
		return int64(v)
	}
	return 0
}

func stringListField(fm map[string]interface{}, key string) []string {
	if fm == nil {
		return nil
	}
	raw, ok := fm[key].([]interface{})
	if !ok {
		return nil
	}
	var out []string
	for _, item := range raw {
		if s, ok := item.(string); ok {
			s = strings.TrimSpace(s)
			if s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

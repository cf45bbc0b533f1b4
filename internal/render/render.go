package render

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"gopkg.in/yaml.v3"

	"github.com/efebarandurmaz/muse/internal/llm/ollama"
	"github.com/efebarandurmaz/muse/internal/persona"
)

// Output formats accepted by Encode.
const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
)

// Encode writes v as indented JSON or YAML.
func Encode(w io.Writer, format string, v any) error {
	switch strings.ToLower(format) {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown output format %q (want table, json or yaml)", format)
	}
}

func (s *Styles) newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(s.Border).
		Headers(headers...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return s.Header
			}
			return s.Cell
		})
}

// PersonaTable renders the catalog summary, marking the default persona.
func (s *Styles) PersonaTable(list []persona.Summary) string {
	t := s.newTable("KEY", "NAME", "STYLE")
	for _, p := range list {
		key := p.Key
		if key == persona.DefaultKey {
			key += " (default)"
		}
		t.Row(key, p.Name, p.Style)
	}
	return t.Render()
}

// ModelTable renders the models installed on the server.
func (s *Styles) ModelTable(models []ollama.ModelInfo) string {
	t := s.newTable("NAME", "SIZE", "MODIFIED")
	for _, m := range models {
		modified := ""
		if !m.ModifiedAt.IsZero() {
			modified = m.ModifiedAt.Format("2006-01-02 15:04")
		}
		t.Row(m.Name, HumanSize(m.Size), modified)
	}
	return t.Render()
}

// HumanSize formats a byte count with binary units.
func HumanSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

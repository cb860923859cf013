// Package modes holds the closed set of widget modes and the catalog of
// labels and acknowledgement messages shown when a mode is picked.
package modes

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type Mode string

const (
	ModeChat             Mode = "chat"
	ModeFileOperation    Mode = "file_operation"
	ModeScheduleReminder Mode = "schedule_reminder"
	ModeRunScript        Mode = "run_script"
	ModeSearch           Mode = "search"
	ModeSystemInfo       Mode = "system_info"
)

// Default is the mode every client starts in.
const Default = ModeChat

// All lists the modes in display order.
var All = []Mode{
	ModeChat,
	ModeFileOperation,
	ModeScheduleReminder,
	ModeRunScript,
	ModeSearch,
	ModeSystemInfo,
}

var ErrUnknownMode = errors.New("unknown mode")

func (m Mode) Valid() bool {
	for _, k := range All {
		if k == m {
			return true
		}
	}
	return false
}

// Parse maps user input to a Mode. Matching is case-insensitive and accepts
// dashes in place of underscores.
func Parse(s string) (Mode, error) {
	m := Mode(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_"))
	if !m.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
	}
	return m, nil
}

// Entry is one selectable row of the capability list.
type Entry struct {
	Mode    Mode   `json:"mode"`
	Label   string `json:"label"`
	Message string `json:"message,omitempty"`
}

// Catalog maps every mode to its label and canned message.
type Catalog struct {
	greeting string
	entries  []Entry
	byMode   map[Mode]int
}

//go:embed modes.yaml
var defaultYAML []byte

type catalogFile struct {
	Greeting *string `yaml:"greeting"`
	Modes    []struct {
		Mode    string  `yaml:"mode"`
		Label   *string `yaml:"label"`
		Message *string `yaml:"message"`
	} `yaml:"modes"`
}

// DefaultCatalog returns the built-in catalog.
func DefaultCatalog() *Catalog {
	c := &Catalog{byMode: make(map[Mode]int, len(All))}
	for _, m := range All {
		c.byMode[m] = len(c.entries)
		c.entries = append(c.entries, Entry{Mode: m, Label: string(m)})
	}
	if err := c.apply(defaultYAML); err != nil {
		panic(fmt.Sprintf("modes: embedded catalog: %v", err))
	}
	return c
}

// LoadCatalog reads a YAML override from path and layers it on top of the
// built-in catalog. Entries may reword labels and messages of known modes; an
// empty message disables the acknowledgement for that mode. Unknown modes
// are rejected so the set stays closed.
func LoadCatalog(path string) (*Catalog, error) {
	c := DefaultCatalog()
	if strings.TrimSpace(path) == "" {
		return c, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := c.apply(b); err != nil {
		return nil, fmt.Errorf("modes file %s: %w", path, err)
	}
	return c, nil
}

func (c *Catalog) apply(b []byte) error {
	var f catalogFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return err
	}
	if f.Greeting != nil {
		c.greeting = strings.TrimSpace(*f.Greeting)
	}
	for _, row := range f.Modes {
		m, err := Parse(row.Mode)
		if err != nil {
			return err
		}
		e := &c.entries[c.byMode[m]]
		if row.Label != nil && strings.TrimSpace(*row.Label) != "" {
			e.Label = strings.TrimSpace(*row.Label)
		}
		if row.Message != nil {
			e.Message = strings.TrimSpace(*row.Message)
		}
	}
	return nil
}

// Entries returns a copy of the catalog in display order.
func (c *Catalog) Entries() []Entry {
	return append([]Entry(nil), c.entries...)
}

func (c *Catalog) Lookup(m Mode) (Entry, bool) {
	i, ok := c.byMode[m]
	if !ok {
		return Entry{}, false
	}
	return c.entries[i], true
}

// Label falls back to the raw tag for modes outside the catalog.
func (c *Catalog) Label(m Mode) string {
	if e, ok := c.Lookup(m); ok {
		return e.Label
	}
	return string(m)
}

// Message returns the canned acknowledgement, or "" when there is none.
func (c *Catalog) Message(m Mode) string {
	e, _ := c.Lookup(m)
	return e.Message
}

func (c *Catalog) Greeting() string { return c.greeting }

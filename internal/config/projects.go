package config

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/viper"
)

// ignoredProjectKeys are bookkeeping members of the project reference
// document that do not describe a project.
var ignoredProjectKeys = map[string]bool{
	"facet_config":        true,
	"ecv_labels":          true,
	"ecv_title_ids":       true,
	"full_search_results": true,
}

// Project is one entry of the project reference document.
type Project struct {
	Name     string `mapstructure:"-"`
	Abstract string `mapstructure:"abstract"`
	ECV      ECV    `mapstructure:"ecv"`
}

// ECV describes the essential climate variable behind a project.
type ECV struct {
	Slug             string     `mapstructure:"slug"`
	TemporalCoverage *DateRange `mapstructure:"temporal_coverage"`
	MinDate          string     `mapstructure:"min_date"`
	MaxDate          string     `mapstructure:"max_date"`
}

// DateRange is a pair of YYYY-MM-DD dates.
type DateRange struct {
	MinDate string `mapstructure:"min_date"`
	MaxDate string `mapstructure:"max_date"`
}

// CollectionID returns the project collection id: the lower-cased ECV slug
// with dashes replaced by underscores, or the project name when there is no
// slug.
func (p *Project) CollectionID() string {
	id := p.ECV.Slug
	if id == "" {
		id = p.Name
	}
	return strings.ToLower(strings.ReplaceAll(id, "-", "_"))
}

// Interval returns the project temporal coverage, preferring
// temporal_coverage over the flat min/max dates. ok is false when neither
// is present.
func (p *Project) Interval() (start, end string, ok bool) {
	if tc := p.ECV.TemporalCoverage; tc != nil && tc.MinDate != "" && tc.MaxDate != "" {
		return tc.MinDate + "T00:00:00Z", tc.MaxDate + "T00:00:00Z", true
	}
	if p.ECV.MinDate != "" && p.ECV.MaxDate != "" {
		return p.ECV.MinDate + "T00:00:00Z", p.ECV.MaxDate + "T00:00:00Z", true
	}
	return "", "", false
}

// ProjectRegistry holds the projects of the reference document.
type ProjectRegistry struct {
	projects map[string]*Project
}

// LoadProjects reads the project reference document. JSON and YAML are
// both accepted; the format follows the file extension.
func LoadProjects(path string) (*ProjectRegistry, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read project reference %q: %w", path, err)
	}
	return projectsFromViper(v)
}

func projectsFromViper(v *viper.Viper) (*ProjectRegistry, error) {
	registry := &ProjectRegistry{projects: make(map[string]*Project)}

	for name := range v.AllSettings() {
		if ignoredProjectKeys[name] {
			continue
		}
		var p Project
		if err := v.UnmarshalKey(name, &p); err != nil {
			return nil, fmt.Errorf("failed to decode project %q: %w", name, err)
		}
		p.Name = name
		registry.projects[name] = &p
	}

	return registry, nil
}

// Get retrieves a project by name.
// Returns nil if the project does not exist.
func (r *ProjectRegistry) Get(name string) *Project {
	return r.projects[name]
}

// Names returns all project names in lexical order.
func (r *ProjectRegistry) Names() []string {
	names := make([]string, 0, len(r.projects))
	for name := range r.projects {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count returns the number of projects in the registry.
func (r *ProjectRegistry) Count() int {
	return len(r.projects)
}

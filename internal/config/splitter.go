package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// Splitter assigns files to asset labels when several files are merged
// into one OpenEO item. It is either a literal label applied to every file,
// or a set of rules keyed by file-name substring.
type Splitter struct {
	Label string
	Rules map[string]SplitRule
}

// SplitRule replaces the matched substring in the file stem and names the
// asset.
type SplitRule struct {
	Replacement string
	Label       string
}

// UnmarshalYAML accepts a scalar label or a mapping of
// substring: [replacement, label].
func (s *Splitter) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		return node.Decode(&s.Label)

	case yaml.MappingNode:
		var raw map[string][]string
		if err := node.Decode(&raw); err != nil {
			return err
		}
		s.Rules = make(map[string]SplitRule, len(raw))
		for key, pair := range raw {
			if len(pair) != 2 {
				return fmt.Errorf("splitter rule %q must be [replacement, label], got %d values", key, len(pair))
			}
			s.Rules[key] = SplitRule{Replacement: pair[0], Label: pair[1]}
		}
		return nil

	default:
		return fmt.Errorf("splitter must be a label or a mapping")
	}
}

// IsZero reports whether the splitter has neither label nor rules.
func (s *Splitter) IsZero() bool {
	return s == nil || (s.Label == "" && len(s.Rules) == 0)
}

// Match resolves the asset label for a file stem. A literal label always
// matches and leaves the stem unchanged. Otherwise the longest rule key
// contained in the stem wins and is replaced in the returned stem.
func (s *Splitter) Match(stem string) (newStem, label string, ok bool) {
	if s == nil {
		return stem, "", false
	}
	if s.Label != "" {
		return stem, s.Label, true
	}

	best := ""
	for key := range s.Rules {
		if !strings.Contains(stem, key) {
			continue
		}
		if len(key) > len(best) || (len(key) == len(best) && key < best) {
			best = key
		}
	}
	if best == "" {
		return stem, "", false
	}
	rule := s.Rules[best]
	return strings.Replace(stem, best, rule.Replacement, 1), rule.Label, true
}

// ParseSplitter decodes a YAML or JSON splitter document.
func ParseSplitter(data []byte) (*Splitter, error) {
	var s Splitter
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse splitter: %w", err)
	}
	return &s, nil
}

// ResolveSplitter interprets a command-line splitter argument: the path of
// a splitter file when one exists, a literal label otherwise.
func ResolveSplitter(fs afero.Fs, arg string) (*Splitter, error) {
	if arg == "" {
		return nil, nil
	}
	data, err := afero.ReadFile(fs, arg)
	if err != nil {
		if os.IsNotExist(err) {
			return &Splitter{Label: arg}, nil
		}
		return nil, fmt.Errorf("failed to read splitter %q: %w", arg, err)
	}
	return ParseSplitter(data)
}

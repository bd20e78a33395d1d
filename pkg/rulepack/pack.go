package rulepack

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"mercator-hq/mailguard/pkg/analyzer"
	"mercator-hq/mailguard/pkg/analyzer/rules"
)

// Pack is one YAML rule pack.
type Pack struct {
	Name        string          `yaml:"name"`
	Description string          `yaml:"description"`
	Source      analyzer.Source `yaml:"source"`
	Thresholds  Thresholds      `yaml:"thresholds"`
	Rules       []Rule          `yaml:"rules"`

	// File is the path the pack was loaded from.
	File string `yaml:"-"`
}

// Thresholds are the minimum scores for each decision. Zero values take
// the builtin rule analyzer's thresholds.
type Thresholds struct {
	Phishing int `yaml:"phishing"`
	Spam     int `yaml:"spam"`
}

// Rule is a weighted pattern.
type Rule struct {
	ID      string `yaml:"id"`
	Pattern string `yaml:"pattern"`
	Weight  int    `yaml:"weight"`

	// Factor is the description fragment reported on a match. Defaults to ID.
	Factor string `yaml:"factor"`
}

// ValidationError lists the problems found in a pack.
type ValidationError struct {
	File     string
	Pack     string
	Problems []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	where := e.Pack
	if e.File != "" {
		where = e.File
	}
	return fmt.Sprintf("invalid rule pack %s: %s", where, strings.Join(e.Problems, "; "))
}

var packNamePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]*$`)

// applyDefaults fills omitted fields in place.
func (p *Pack) applyDefaults() {
	if p.Source == "" {
		p.Source = analyzer.SourceCustom
	}
	if p.Thresholds.Phishing == 0 {
		p.Thresholds.Phishing = rules.PhishingThreshold
	}
	if p.Thresholds.Spam == 0 {
		p.Thresholds.Spam = rules.SpamThreshold
	}
	for i := range p.Rules {
		if p.Rules[i].Factor == "" {
			p.Rules[i].Factor = p.Rules[i].ID
		}
	}
}

// Validate checks names, thresholds, weights and that every pattern
// compiles. It returns a *ValidationError listing every problem.
func (p *Pack) Validate() error {
	var problems []string

	if !packNamePattern.MatchString(p.Name) {
		problems = append(problems, fmt.Sprintf("name %q must be non-empty and contain only letters, digits, '_', '.', '-'", p.Name))
	}
	if p.Thresholds.Spam <= 0 || p.Thresholds.Phishing <= p.Thresholds.Spam {
		problems = append(problems, fmt.Sprintf("thresholds must satisfy 0 < spam < phishing (got spam=%d phishing=%d)",
			p.Thresholds.Spam, p.Thresholds.Phishing))
	}
	if len(p.Rules) == 0 {
		problems = append(problems, "at least one rule is required")
	}

	seen := make(map[string]bool, len(p.Rules))
	for i, r := range p.Rules {
		label := r.ID
		if label == "" {
			label = fmt.Sprintf("#%d", i)
			problems = append(problems, fmt.Sprintf("rule %s: id is required", label))
		} else if seen[r.ID] {
			problems = append(problems, fmt.Sprintf("rule %s: duplicate id", label))
		}
		seen[r.ID] = true

		if r.Weight <= 0 {
			problems = append(problems, fmt.Sprintf("rule %s: weight must be positive", label))
		}
		if r.Pattern == "" {
			problems = append(problems, fmt.Sprintf("rule %s: pattern is required", label))
		} else if _, err := compileRule(r.Pattern); err != nil {
			problems = append(problems, fmt.Sprintf("rule %s: %v", label, err))
		}
	}

	if len(problems) > 0 {
		return &ValidationError{File: p.File, Pack: p.Name, Problems: problems}
	}
	return nil
}

func compileRule(pattern string) (*regexp.Regexp, error) {
	return regexp.Compile("(?i)" + pattern)
}

// Parse decodes, defaults and validates one pack. file is used in errors.
func Parse(data []byte, file string) (*Pack, error) {
	var p Pack
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("failed to parse rule pack %s: %w", file, err)
	}
	p.File = file
	p.applyDefaults()
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// LoadFile reads and parses a single pack file.
func LoadFile(path string) (*Pack, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rule pack: %w", err)
	}
	return Parse(data, path)
}

// Load reads a pack file, or every .yaml/.yml file under a directory
// (hidden files and directories are skipped). Pack names must be unique.
// Packs are returned sorted by file path.
func Load(path string) ([]*Pack, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to access rule pack path: %w", err)
	}
	if !info.IsDir() {
		p, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		return []*Pack{p}, nil
	}

	files, err := packFiles(path)
	if err != nil {
		return nil, err
	}

	packs := make([]*Pack, 0, len(files))
	byName := make(map[string]string, len(files))
	for _, f := range files {
		p, err := LoadFile(f)
		if err != nil {
			return nil, err
		}
		if prev, ok := byName[p.Name]; ok {
			return nil, fmt.Errorf("duplicate rule pack name %q in %s and %s", p.Name, prev, f)
		}
		byName[p.Name] = f
		packs = append(packs, p)
	}
	return packs, nil
}

func packFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path != dir && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.IsDir() && isPackFile(path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk rule pack directory: %w", err)
	}
	sort.Strings(files)
	return files, nil
}

func isPackFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

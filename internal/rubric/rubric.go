package rubric

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ppiankov/cardaudit/internal/model"
)

// ErrInvalidRubric is returned when the requirement source cannot be used
var ErrInvalidRubric = errors.New("invalid rubric")

// Rubric is the ordered, read-only set of requirements
type Rubric struct {
	requirements []model.Requirement
	byID         map[string]int
}

// Load reads requirements from a JSON or YAML file (by extension)
func Load(path string) (*Rubric, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rubric %s: %w", path, err)
	}

	var reqs []model.Requirement
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &reqs)
	default:
		err = json.Unmarshal(data, &reqs)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", ErrInvalidRubric, path, err)
	}

	return New(reqs)
}

// New validates requirements and builds a rubric preserving their order
func New(reqs []model.Requirement) (*Rubric, error) {
	if len(reqs) == 0 {
		return nil, fmt.Errorf("%w: no requirements", ErrInvalidRubric)
	}

	r := &Rubric{
		requirements: make([]model.Requirement, len(reqs)),
		byID:         make(map[string]int, len(reqs)),
	}
	copy(r.requirements, reqs)

	for i, req := range r.requirements {
		if strings.TrimSpace(req.ID) == "" {
			return nil, fmt.Errorf("%w: requirement %d has no id", ErrInvalidRubric, i)
		}
		if strings.TrimSpace(req.Framework) == "" {
			return nil, fmt.Errorf("%w: requirement %s has no framework", ErrInvalidRubric, req.ID)
		}
		if _, dup := r.byID[req.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate requirement id %s", ErrInvalidRubric, req.ID)
		}
		r.byID[req.ID] = i
	}

	return r, nil
}

// Requirements returns the requirements in source order
func (r *Rubric) Requirements() []model.Requirement {
	out := make([]model.Requirement, len(r.requirements))
	copy(out, r.requirements)
	return out
}

// Len returns the number of requirements
func (r *Rubric) Len() int {
	return len(r.requirements)
}

// Get looks up a requirement by id
func (r *Rubric) Get(id string) (model.Requirement, bool) {
	i, ok := r.byID[id]
	if !ok {
		return model.Requirement{}, false
	}
	return r.requirements[i], true
}

// IDs returns all requirement ids in source order
func (r *Rubric) IDs() []string {
	ids := make([]string, len(r.requirements))
	for i, req := range r.requirements {
		ids[i] = req.ID
	}
	return ids
}

// GroupByFramework returns requirement ids keyed by framework, each list in source order
func (r *Rubric) GroupByFramework() map[string][]string {
	grouped := make(map[string][]string)
	for _, req := range r.requirements {
		grouped[req.Framework] = append(grouped[req.Framework], req.ID)
	}
	return grouped
}

// Frameworks returns the distinct framework names, sorted
func (r *Rubric) Frameworks() []string {
	grouped := r.GroupByFramework()
	names := make([]string, 0, len(grouped))
	for name := range grouped {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Only returns a rubric restricted to the named frameworks, keeping source
// order. An empty list returns r unchanged.
func (r *Rubric) Only(frameworks []string) (*Rubric, error) {
	if len(frameworks) == 0 {
		return r, nil
	}
	keep := make(map[string]bool, len(frameworks))
	for _, f := range frameworks {
		keep[f] = true
	}

	var reqs []model.Requirement
	for _, req := range r.requirements {
		if keep[req.Framework] {
			reqs = append(reqs, req)
		}
	}
	if len(reqs) == 0 {
		return nil, fmt.Errorf("%w: no requirements in frameworks %s", ErrInvalidRubric, strings.Join(frameworks, ", "))
	}
	return New(reqs)
}

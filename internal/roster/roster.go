// Package roster loads the administrator-maintained project and user roster.
package roster

import (
	"cmp"
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/j-veylop/sbu-reporter/internal/models"
)

// DefaultProjectKey is the optional top-level key naming the default project.
const DefaultProjectKey = "project"

var (
	// ErrMalformedRoster is returned when the roster structure is invalid.
	ErrMalformedRoster = errors.New("malformed roster")
	// ErrMissingField is returned when a required project field is absent or invalid.
	ErrMissingField = errors.New("missing or invalid field")
)

// project mirrors one project mapping of the roster file.
type project struct {
	Description string            `yaml:"description"`
	PI          string            `yaml:"PI" validate:"required"`
	Requested   any               `yaml:"SBU requested"`
	Users       map[string]string `yaml:"users" validate:"required"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Load reads and parses the roster file at path.
func Load(path string) (*models.Roster, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read roster: %w", err)
	}
	r, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return r, nil
}

// Parse builds a roster from YAML content.
// Entries are sorted by project code, then username.
func Parse(data []byte) (*models.Roster, error) {
	var doc map[string]yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedRoster, err)
	}
	if len(doc) == 0 {
		return nil, fmt.Errorf("%w: no projects defined", ErrMalformedRoster)
	}

	r := &models.Roster{}
	seen := make(map[string]string)

	for code, node := range doc {
		if code == DefaultProjectKey && node.Kind == yaml.ScalarNode {
			r.DefaultProject = strings.TrimSpace(node.Value)
			continue
		}
		if node.Kind != yaml.MappingNode {
			return nil, fmt.Errorf("%w: project %q is not a mapping", ErrMalformedRoster, code)
		}

		var p project
		if err := node.Decode(&p); err != nil {
			return nil, fmt.Errorf("%w: project %q: %v", ErrMalformedRoster, code, err)
		}
		if err := checkProject(code, &p); err != nil {
			return nil, err
		}

		if p.Requested == nil {
			return nil, fmt.Errorf("%w: project %q: SBU requested", ErrMissingField, code)
		}
		requested, err := parseRequested(p.Requested)
		if err != nil {
			return nil, fmt.Errorf("%w: project %q: SBU requested: %v", ErrMissingField, code, err)
		}

		for username, name := range p.Users {
			if prev, dup := seen[username]; dup {
				return nil, fmt.Errorf("%w: user %q listed under both %q and %q",
					ErrMalformedRoster, username, prev, code)
			}
			seen[username] = code
			r.Entries = append(r.Entries, models.Entry{
				Username:    username,
				Name:        name,
				Project:     code,
				PI:          p.PI,
				Description: p.Description,
				Requested:   requested,
			})
		}
	}

	slices.SortFunc(r.Entries, func(a, b models.Entry) int {
		return cmp.Or(cmp.Compare(a.Project, b.Project), cmp.Compare(a.Username, b.Username))
	})

	return r, nil
}

// checkProject maps validation failures onto the roster error kinds.
func checkProject(code string, p *project) error {
	err := validate.Struct(p)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: project %q: %v", ErrMalformedRoster, code, err)
	}
	for _, fe := range verrs {
		if fe.Field() == "Users" {
			return fmt.Errorf("%w: project %q has no users mapping", ErrMalformedRoster, code)
		}
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fe.Field())
	}
	return fmt.Errorf("%w: project %q: %s", ErrMissingField, code, strings.Join(fields, ", "))
}

// parseRequested accepts any YAML scalar that reads as a number.
func parseRequested(v any) (float64, error) {
	switch n := v.(type) {
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case uint64:
		return float64(n), nil
	case float64:
		return n, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, fmt.Errorf("%q is not numeric", n)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("unsupported value %v", v)
	}
}

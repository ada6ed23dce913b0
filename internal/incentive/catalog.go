// Package incentive matches installations against a catalog of funding
// programs and totals the available funding under per-property-type caps.
package incentive

import (
	_ "embed"
	"os"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/solar-engine/internal/model"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// DeadlineLayout is the date format of program deadlines.
const DeadlineLayout = "2006-01-02"

// Formula kinds.
const (
	FormulaFlat          = "flat"
	FormulaPerWatt       = "per_watt"
	FormulaPercentOfCost = "percent_of_cost"
)

// Catalog is the set of programs and the stacking caps that bound them.
type Catalog struct {
	StackingCaps map[model.PropertyType]float64 `yaml:"stacking_caps"`
	Programs     []Program                      `yaml:"programs"`
}

// Program is one catalog entry.
type Program struct {
	ID                  string                  `yaml:"id"`
	Name                string                  `yaml:"name"`
	Administrator       string                  `yaml:"administrator"`
	Category            model.IncentiveCategory `yaml:"category"`
	Description         string                  `yaml:"description"`
	Criteria            []string                `yaml:"criteria"`
	PropertyTypes       []model.PropertyType    `yaml:"property_types"`
	Rules               Rules                   `yaml:"rules"`
	Value               Formula                 `yaml:"value"`
	MaxAmount           float64                 `yaml:"max_amount"`
	Deadline            string                  `yaml:"deadline"`
	RequiresPreApproval bool                    `yaml:"requires_pre_approval"`
	URL                 string                  `yaml:"url"`

	deadline *time.Time
}

// Rules is the machine-checked part of a program's criteria. Zero bounds are
// unset.
type Rules struct {
	MinSizeKW float64 `yaml:"min_size_kw"`
	MaxSizeKW float64 `yaml:"max_size_kw"`
	MinCost   float64 `yaml:"min_cost"`
	MaxCost   float64 `yaml:"max_cost"`
}

// Formula computes a program's estimated value.
type Formula struct {
	Kind    string  `yaml:"formula"`
	Amount  float64 `yaml:"amount"`
	Rate    float64 `yaml:"rate"`
	Percent float64 `yaml:"percent"`
}

// DefaultCatalog returns the embedded catalog.
func DefaultCatalog() (*Catalog, error) {
	return ParseCatalog(defaultCatalog)
}

// LoadCatalog reads a catalog file. An empty path loads the embedded default.
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		return DefaultCatalog()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "incentive: read catalog %s", path)
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes and validates YAML catalog data.
func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, eris.Wrap(err, "incentive: parse catalog")
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Catalog) validate() error {
	seen := make(map[string]bool, len(c.Programs))
	for i := range c.Programs {
		p := &c.Programs[i]
		if p.ID == "" {
			return eris.Errorf("incentive: program %d has no id", i)
		}
		if seen[p.ID] {
			return eris.Errorf("incentive: duplicate program id %q", p.ID)
		}
		seen[p.ID] = true

		switch p.Category {
		case model.CategoryGrant, model.CategoryLoan, model.CategoryInterestFreeLoan:
		default:
			return eris.Errorf("incentive: program %s: unknown category %q", p.ID, p.Category)
		}
		switch p.Value.Kind {
		case FormulaFlat, FormulaPerWatt, FormulaPercentOfCost:
		default:
			return eris.Errorf("incentive: program %s: unknown formula %q", p.ID, p.Value.Kind)
		}
		if p.MaxAmount < 0 {
			return eris.Errorf("incentive: program %s: negative max_amount", p.ID)
		}
		for j, pt := range p.PropertyTypes {
			parsed, ok := model.ParsePropertyType(string(pt))
			if !ok {
				return eris.Errorf("incentive: program %s: unknown property type %q", p.ID, pt)
			}
			p.PropertyTypes[j] = parsed
		}
		if d := strings.TrimSpace(p.Deadline); d != "" {
			t, err := time.Parse(DeadlineLayout, d)
			if err != nil {
				return eris.Wrapf(err, "incentive: program %s: deadline", p.ID)
			}
			p.deadline = &t
		}
	}
	return nil
}

// AppliesTo reports whether the program is open to pt.
func (p Program) AppliesTo(pt model.PropertyType) bool {
	for _, t := range p.PropertyTypes {
		if t == pt {
			return true
		}
	}
	return false
}

// Info converts the program to its public description.
func (p Program) Info() model.IncentiveInfo {
	return model.IncentiveInfo{
		ID:                  p.ID,
		Name:                p.Name,
		Administrator:       p.Administrator,
		Category:            p.Category,
		Description:         p.Description,
		Criteria:            p.Criteria,
		MaxAmount:           p.MaxAmount,
		PropertyTypes:       p.PropertyTypes,
		Deadline:            p.deadline,
		RequiresPreApproval: p.RequiresPreApproval,
		URL:                 p.URL,
	}
}

// ProgramsFor lists the programs open to pt in catalog order.
func (c *Catalog) ProgramsFor(pt model.PropertyType) []Program {
	var out []Program
	for _, p := range c.Programs {
		if p.AppliesTo(pt) {
			out = append(out, p)
		}
	}
	return out
}

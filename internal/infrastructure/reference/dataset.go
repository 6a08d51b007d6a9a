package reference

import (
	_ "embed"
	"os"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/width"
	"gopkg.in/yaml.v3"

	"github.com/Ryotaverse69/suptia-project-sub001/internal/domain"
)

//go:embed default.yaml
var defaultYAML []byte

var (
	parentheticalRegex = regexp.MustCompile(`\([^)]*\)`)
	separatorRegex     = regexp.MustCompile(`[\s_]+`)
)

// Dataset is the read-only reference dataset: IU factors, realistic ceilings,
// RDA/UL entries and ingredient aliases. It implements domain.ReferenceData.
type Dataset struct {
	DefaultCeiling float64                    `yaml:"default_ceiling"`
	IUFactors      map[string]float64         `yaml:"iu_factors"`
	Ceilings       map[string]float64         `yaml:"ceilings"`
	RDA            map[string]domain.RdaEntry `yaml:"rda"`
	Aliases        map[string]string          `yaml:"aliases"`
}

var _ domain.ReferenceData = (*Dataset)(nil)

// Default returns the embedded dataset.
func Default() *Dataset {
	d, err := Parse(defaultYAML)
	if err != nil {
		panic(eris.Wrap(err, "reference: embedded dataset"))
	}
	return d
}

// Load reads a dataset from a YAML file. An empty path returns the embedded default.
func Load(path string) (*Dataset, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "reference: read dataset %s", path)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML dataset.
func Parse(data []byte) (*Dataset, error) {
	var d Dataset
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, eris.Wrap(err, "reference: parse dataset")
	}
	return New(d)
}

// New validates d and normalizes its keys. Tests use it to inject substitute tables.
func New(d Dataset) (*Dataset, error) {
	if d.DefaultCeiling <= 0 {
		return nil, eris.Wrap(domain.ErrInvalidReference, "reference: default_ceiling must be positive")
	}

	out := &Dataset{
		DefaultCeiling: d.DefaultCeiling,
		IUFactors:      make(map[string]float64, len(d.IUFactors)),
		Ceilings:       make(map[string]float64, len(d.Ceilings)),
		RDA:            make(map[string]domain.RdaEntry, len(d.RDA)),
		Aliases:        make(map[string]string, len(d.Aliases)),
	}

	for k, v := range d.IUFactors {
		if v <= 0 {
			return nil, eris.Wrapf(domain.ErrInvalidReference, "reference: iu factor for %s must be positive", k)
		}
		out.IUFactors[NormalizeName(k)] = v
	}
	for k, v := range d.Ceilings {
		if v <= 0 {
			return nil, eris.Wrapf(domain.ErrInvalidReference, "reference: ceiling for %s must be positive", k)
		}
		out.Ceilings[NormalizeName(k)] = v
	}
	for k, e := range d.RDA {
		if e.RDA.Male < 0 || e.RDA.Female < 0 {
			return nil, eris.Wrapf(domain.ErrInvalidReference, "reference: negative rda for %s", k)
		}
		if e.UL != nil && e.UL.Value <= 0 {
			return nil, eris.Wrapf(domain.ErrInvalidReference, "reference: ul for %s must be positive", k)
		}
		out.RDA[NormalizeName(k)] = e
	}
	for alias, key := range d.Aliases {
		out.Aliases[NormalizeName(alias)] = NormalizeName(key)
	}

	return out, nil
}

// NormalizeName folds width, lowercases, drops parenthetical qualifiers and
// joins words with hyphens: "Vitamin D3 (Cholecalciferol)" -> "vitamin-d3".
func NormalizeName(name string) string {
	s := width.Fold.String(name)
	s = strings.ToLower(s)
	s = parentheticalRegex.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)
	return separatorRegex.ReplaceAllString(s, "-")
}

// CanonicalKey resolves a raw ingredient name to its dataset key.
// Names that match no alias are returned normalized.
func (d *Dataset) CanonicalKey(name string) string {
	key := NormalizeName(name)
	if canonical, ok := d.Aliases[key]; ok {
		return canonical
	}
	return key
}

// IUFactor returns the mg-per-IU factor for key.
func (d *Dataset) IUFactor(key string) (float64, bool) {
	v, ok := d.IUFactors[key]
	return v, ok
}

// CeilingMg returns the realistic per-serving ceiling for key.
func (d *Dataset) CeilingMg(key string) (float64, bool) {
	v, ok := d.Ceilings[key]
	return v, ok
}

// DefaultCeilingMg is the ceiling applied to ingredients without their own entry.
func (d *Dataset) DefaultCeilingMg() float64 {
	return d.DefaultCeiling
}

// Rda returns the RDA/UL entry for key.
func (d *Dataset) Rda(key string) (domain.RdaEntry, bool) {
	e, ok := d.RDA[key]
	return e, ok
}

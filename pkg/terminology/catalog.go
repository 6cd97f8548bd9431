package terminology

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Phenotype status values. StatusNotRecorded is replaced by the configured
// "not recorded" sentinel when a status is parsed.
const (
	StatusExcluded    = "true"
	StatusObserved    = "false"
	StatusNotRecorded = "not_recorded"
)

// Catalog holds the registry code tables for the MC4R cohort.
type Catalog struct {
	Sex             map[string]string `yaml:"sex" json:"sex"`
	Zygosity        map[string]string `yaml:"zygosity" json:"zygosity"`
	AlleleLabel     map[string]string `yaml:"allele_label" json:"allele_label"`
	PhenotypeLabel  map[string]string `yaml:"phenotype_label" json:"phenotype_label"`
	PhenotypeStatus map[string]string `yaml:"phenotype_status" json:"phenotype_status"`
}

func Load(path string) (Catalog, error) {
	if path == "" {
		return DefaultCatalog(), nil
	}
	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Catalog{}, err
	}
	var cat Catalog
	if err := yaml.Unmarshal(content, &cat); err != nil {
		return Catalog{}, err
	}
	required := []struct {
		name    string
		entries map[string]string
	}{
		{"sex", cat.Sex},
		{"zygosity", cat.Zygosity},
		{"allele_label", cat.AlleleLabel},
		{"phenotype_status", cat.PhenotypeStatus},
	}
	for _, table := range required {
		if len(table.entries) == 0 {
			return Catalog{}, fmt.Errorf("terminology catalog %s is missing the %s table", path, table.name)
		}
	}
	for code, status := range cat.PhenotypeStatus {
		switch status {
		case StatusExcluded, StatusObserved, StatusNotRecorded:
		default:
			return Catalog{}, fmt.Errorf("phenotype status %s maps to %q, want one of %s, %s, %s",
				code, status, StatusExcluded, StatusObserved, StatusNotRecorded)
		}
	}
	return cat, nil
}

func (c Catalog) LookupSex(code string) (string, bool) {
	return lookup(c.Sex, code)
}

func (c Catalog) LookupZygosity(code string) (string, bool) {
	return lookup(c.Zygosity, code)
}

func (c Catalog) LookupAlleleLabel(code string) (string, bool) {
	return lookup(c.AlleleLabel, code)
}

func (c Catalog) LookupPhenotypeLabel(code string) (string, bool) {
	return lookup(c.PhenotypeLabel, code)
}

func (c Catalog) LookupPhenotypeStatus(code string) (string, bool) {
	return lookup(c.PhenotypeStatus, code)
}

// lookup is exact on the registry code; codes are case sensitive
// (ln_LA6705-3 vs. HP:0001513) so no case folding is done.
func lookup(table map[string]string, code string) (string, bool) {
	if table == nil {
		return "", false
	}
	v, ok := table[strings.TrimSpace(code)]
	return v, ok
}

func DefaultCatalog() Catalog {
	return Catalog{
		Sex: map[string]string{
			"sct_248152002":      "FEMALE",
			"sct_248153007":      "MALE",
			"sct_184115007":      "UNKNOWN_SEX", // indeterminate
			"sct_33791000087105": "OTHER_SEX",   // diverse
		},
		Zygosity: map[string]string{
			"ln_LA6705-3":    "GENO:0000136", // homozygous
			"ln_LA6706-1":    "GENO:0000135", // heterozygous
			"ln_LA6707-9":    "GENO:0000134", // hemizygous
			"sct_1220561009": "GENO:0000137", // unspecified zygosity
		},
		AlleleLabel: map[string]string{
			"ln_LA6705-3":    "homozygous",
			"ln_LA6706-1":    "heterozygous",
			"ln_LA6707-9":    "hemizygous",
			"sct_1220561009": "unspecified zygosity",
		},
		PhenotypeLabel: map[string]string{
			"HP:0025501": "Class III obesity",
			"HP:0025500": "Class II obesity",
			"HP:0025499": "Class I obesity",
			"HP:0025502": "Overweight",
			"HP:0001513": "Obesity",
		},
		PhenotypeStatus: map[string]string{
			"sct_410605003":  StatusObserved,    // confirmed present
			"sct_723511001":  StatusExcluded,    // refuted
			"sct_1220561009": StatusNotRecorded, // not recorded
		},
	}
}

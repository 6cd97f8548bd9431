package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

var ErrConfig = errors.New("invalid pipeline configuration")

// ConfigError is returned when the constants bundle cannot be resolved. A run
// must not proceed with unresolved sentinels.
type ConfigError struct {
	reason error
}

func (e ConfigError) Error() string {
	return e.reason.Error()
}

func (e ConfigError) Unwrap() error {
	return e.reason
}

func IsConfigError(err error) bool {
	var ce ConfigError
	return errors.As(err, &ce)
}

// WrapConfigError marks err as a configuration failure. Nil and errors that
// already are ConfigErrors pass through.
func WrapConfigError(err error) error {
	if err == nil || IsConfigError(err) {
		return err
	}
	return ConfigError{reason: err}
}

func configErrorf(format string, args ...interface{}) error {
	return ConfigError{reason: fmt.Errorf(format+": %w", append(args, ErrConfig)...)}
}

// NoValue holds the sentinels that stand in for missing registry values.
type NoValue struct {
	Mutation  string `yaml:"mutation" json:"mutation"`
	Phenotype string `yaml:"phenotype" json:"phenotype"`
	Date      string `yaml:"date" json:"date"`
	OMIM      string `yaml:"omim" json:"omim"`
	Recorded  string `yaml:"recorded" json:"recorded"`
}

type Mapping struct {
	CreatorTag               string   `yaml:"creator_tag" json:"creator_tag"`
	DiseaseLabel             string   `yaml:"disease_label" json:"disease_label"`
	InterpretationStatus     string   `yaml:"interpretation_status" json:"interpretation_status"`
	ProgressStatus           string   `yaml:"progress_status" json:"progress_status"`
	VariantDescriptorIDs     []string `yaml:"variant_descriptor_ids" json:"variant_descriptor_ids"`
	GeneDescriptorSymbol     string   `yaml:"gene_descriptor_symbol" json:"gene_descriptor_symbol"`
	PhenopacketSchemaVersion string   `yaml:"phenopacket_schema_version" json:"phenopacket_schema_version"`
	YearOfBirthMin           int      `yaml:"year_of_birth_min" json:"year_of_birth_min"`
	YearOfBirthMax           int      `yaml:"year_of_birth_max" json:"year_of_birth_max"`
	AttachDiseaseOnset       bool     `yaml:"attach_disease_onset" json:"attach_disease_onset"`
}

// Resources are parallel lists; index i of every list describes one resource.
type Resources struct {
	FormalNames       []string `yaml:"formal_names" json:"formal_names"`
	NamespacePrefixes []string `yaml:"namespace_prefixes" json:"namespace_prefixes"`
	URLs              []string `yaml:"urls" json:"urls"`
	Versions          []string `yaml:"versions" json:"versions"`
	IRIPrefixes       []string `yaml:"iri_prefixes" json:"iri_prefixes"`
}

type Constants struct {
	NoValue   NoValue   `yaml:"no_value" json:"no_value"`
	Mapping   Mapping   `yaml:"constants" json:"constants"`
	Resources Resources `yaml:"resources" json:"resources"`
}

// LoadConstants reads the constants bundle from a YAML file. An empty path
// yields DefaultConstants.
func LoadConstants(path string) (*Constants, error) {
	if path == "" {
		c := DefaultConstants()
		return &c, nil
	}
	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, ConfigError{reason: fmt.Errorf("reading %s: %w", path, err)}
	}
	c := DefaultConstants()
	if err := yaml.Unmarshal(content, &c); err != nil {
		return nil, ConfigError{reason: fmt.Errorf("parsing %s: %w", path, err)}
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Constants) Validate() error {
	sentinels := map[string]string{
		"mutation":  c.NoValue.Mutation,
		"phenotype": c.NoValue.Phenotype,
		"date":      c.NoValue.Date,
		"omim":      c.NoValue.OMIM,
		"recorded":  c.NoValue.Recorded,
	}
	seen := make(map[string]string, len(sentinels))
	for name, value := range sentinels {
		if strings.TrimSpace(value) == "" {
			return configErrorf("no_value.%s is empty", name)
		}
		if other, ok := seen[value]; ok {
			return configErrorf("no_value.%s and no_value.%s share the sentinel %q", name, other, value)
		}
		seen[value] = name
	}

	m := c.Mapping
	if m.CreatorTag == "" || m.DiseaseLabel == "" {
		return configErrorf("constants.creator_tag and constants.disease_label are required")
	}
	if m.InterpretationStatus == "" || m.ProgressStatus == "" {
		return configErrorf("constants.interpretation_status and constants.progress_status are required")
	}
	if len(m.VariantDescriptorIDs) == 0 {
		return configErrorf("constants.variant_descriptor_ids is empty")
	}
	if m.YearOfBirthMin > m.YearOfBirthMax {
		return configErrorf("year of birth range [%d, %d] is inverted", m.YearOfBirthMin, m.YearOfBirthMax)
	}

	r := c.Resources
	n := len(r.FormalNames)
	if len(r.NamespacePrefixes) != n || len(r.URLs) != n || len(r.Versions) != n || len(r.IRIPrefixes) != n {
		return configErrorf("resource lists differ in length: names=%d prefixes=%d urls=%d versions=%d iri_prefixes=%d",
			n, len(r.NamespacePrefixes), len(r.URLs), len(r.Versions), len(r.IRIPrefixes))
	}
	return nil
}

func DefaultConstants() Constants {
	return Constants{
		NoValue: NoValue{
			Mutation:  "NO_MUTATION",
			Phenotype: "NO_PHENOTYPE",
			Date:      "NO_DATE",
			OMIM:      "NO_OMIM",
			Recorded:  "NOT_RECORDED",
		},
		Mapping: Mapping{
			CreatorTag:               "ERKER2Phenopackets",
			DiseaseLabel:             "Obesity due to melanocortin 4 receptor deficiency",
			InterpretationStatus:     "CONTRIBUTORY",
			ProgressStatus:           "SOLVED",
			VariantDescriptorIDs:     []string{"id:A", "id:B", "id:C"},
			GeneDescriptorSymbol:     "MC4R",
			PhenopacketSchemaVersion: "2.0",
			YearOfBirthMin:           1900,
			YearOfBirthMax:           2023,
		},
		Resources: Resources{
			FormalNames: []string{
				"Human Phenotype Ontology",
				"Genotype Ontology",
				"NCBI organismal classification",
				"Online Mendelian Inheritance in Man",
				"Orphanet Rare Disease Ontology",
				"HUGO Gene Nomenclature Committee",
			},
			NamespacePrefixes: []string{"HP", "GENO", "NCBITaxon", "OMIM", "ORPHA", "HGNC"},
			URLs: []string{
				"http://purl.obolibrary.org/obo/hp.owl",
				"http://purl.obolibrary.org/obo/geno.owl",
				"http://purl.obolibrary.org/obo/ncbitaxon.owl",
				"https://www.omim.org",
				"https://www.orphadata.com/ordo/",
				"https://www.genenames.org",
			},
			Versions: []string{"2023-07-21", "2023-10-08", "2023-02-21", "2023-09-08", "4.3", "2023-09-18"},
			IRIPrefixes: []string{
				"http://purl.obolibrary.org/obo/HP_",
				"http://purl.obolibrary.org/obo/GENO_",
				"http://purl.obolibrary.org/obo/NCBITaxon_",
				"https://www.omim.org/entry/",
				"http://www.orpha.net/ORDO/Orphanet_",
				"https://www.genenames.org/data/gene-symbol-report/#!/hgnc_id/",
			},
		},
	}
}

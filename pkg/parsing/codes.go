package parsing

import (
	"regexp"
	"strings"

	"github.com/synaptica-ai/erker2phenopackets/pkg/terminology"
)

var omimPattern = regexp.MustCompile(`^\d{6}(\.\d{4})?$`)

func Sex(code string, cat terminology.Catalog) (string, error) {
	if v, ok := cat.LookupSex(code); ok {
		return v, nil
	}
	return "", UnknownCodeError{Table: "sex", Code: code}
}

func Zygosity(code string, cat terminology.Catalog) (string, error) {
	if v, ok := cat.LookupZygosity(code); ok {
		return v, nil
	}
	return "", UnknownCodeError{Table: "zygosity", Code: code}
}

func AlleleLabel(code string, cat terminology.Catalog) (string, error) {
	if v, ok := cat.LookupAlleleLabel(code); ok {
		return v, nil
	}
	return "", UnknownCodeError{Table: "allele label", Code: code}
}

// PhenotypeLabel returns an empty label for codes without a known name; the
// label is optional on a phenotypic feature.
func PhenotypeLabel(code string, cat terminology.Catalog) string {
	v, _ := cat.LookupPhenotypeLabel(code)
	return v
}

// OMIM normalizes an OMIM identifier to OMIM:######[.####]. Null-like input
// ("" or "nan") yields noOMIM.
func OMIM(raw, noOMIM string) (string, error) {
	omim := strings.TrimSpace(strings.ReplaceAll(raw, `"`, ""))
	if omim == "" || strings.EqualFold(omim, "nan") {
		return noOMIM, nil
	}
	if !omimPattern.MatchString(omim) {
		return "", FormatError{Field: "OMIM code", Value: raw, Want: `"6d.4d" or "6d"`}
	}
	return "OMIM:" + omim, nil
}

// PhenotypeStatus maps a tri-state SNOMED status code to "true" (excluded),
// "false" (observed) or notRecorded.
func PhenotypeStatus(code string, cat terminology.Catalog, notRecorded string) (string, error) {
	v, ok := cat.LookupPhenotypeStatus(code)
	if !ok {
		return "", UnknownCodeError{Table: "phenotype status", Code: code}
	}
	if v == terminology.StatusNotRecorded {
		return notRecorded, nil
	}
	return v, nil
}

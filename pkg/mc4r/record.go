package mc4r

import (
	"errors"
	"fmt"

	"github.com/synaptica-ai/erker2phenopackets/pkg/common/config"
	"github.com/synaptica-ai/erker2phenopackets/pkg/parsing"
	"github.com/synaptica-ai/erker2phenopackets/pkg/registry"
	"github.com/synaptica-ai/erker2phenopackets/pkg/terminology"
)

var ErrLengthMismatch = errors.New("slot lists differ in length")

// LengthMismatchError is returned when the parallel slot lists of a row are
// not aligned.
type LengthMismatchError struct {
	What    string
	Lengths []int
}

func (e LengthMismatchError) Error() string {
	return fmt.Sprintf("%s: lengths %v", e.What, e.Lengths)
}

func (e LengthMismatchError) Unwrap() error {
	return ErrLengthMismatch
}

func IsLengthMismatchError(err error) bool {
	var le LengthMismatchError
	return errors.As(err, &le)
}

// RowError ties a mapping failure to the row it came from.
type RowError struct {
	RowID string
	Err   error
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %s: %v", e.RowID, e.Err)
}

func (e RowError) Unwrap() error {
	return e.Err
}

type PhenotypeStatus int

const (
	StatusNotRecorded PhenotypeStatus = iota
	StatusObserved
	StatusExcluded
)

func (s PhenotypeStatus) String() string {
	switch s {
	case StatusObserved:
		return "observed"
	case StatusExcluded:
		return "excluded"
	default:
		return "not recorded"
	}
}

type Phenotype struct {
	Slot   int
	Code   string
	Onset  string
	Label  string
	Status PhenotypeStatus
}

type Variant struct {
	Slot         int
	DescriptorID string
	Zygosity     string
	AlleleLabel  string
	// HGVS holds p.HGVS expressions before c.HGVS ones.
	HGVS []string
}

// Record is a preprocessed registry row with every sentinel resolved. Empty
// strings and nil slices mean absent.
type Record struct {
	ID              string
	DateOfBirth     string
	Sex             string
	DateOfDiagnosis string
	Orpha           string
	HGNC            string
	OMIMs           []string
	Phenotypes      []Phenotype
	Variants        []Variant
}

// DecodeRecord reads one preprocessed row. Phenotype slots without a code or
// onset are skipped as whole slots, so code, onset, label and status always
// come from the same slot. Variant slots without any HGVS expression are
// skipped.
func DecodeRecord(row registry.Row, layout Layout, consts *config.Constants) (Record, error) {
	nv := consts.NoValue
	rec := Record{}

	id, ok := row.Get(ColID)
	if !ok {
		return rec, fmt.Errorf("row has no %s", ColID)
	}
	rec.ID = id
	rec.DateOfBirth, _ = row.Get(ColParsedYearOfBirth)
	rec.Sex, _ = row.Get(ColParsedSex)
	if rec.Sex == "" {
		rec.Sex = "UNKNOWN_SEX"
	}
	if v, ok := row.Get(ColParsedDateOfDiagnosis); ok && v != nv.Date {
		rec.DateOfDiagnosis = v
	}
	rec.Orpha, ok = row.Get(ColOrpha)
	if !ok {
		return rec, parsing.FormatError{Field: ColOrpha, Value: "", Want: "an ORPHA code"}
	}
	rec.HGNC, _ = row.Get(ColHGNC)

	for _, i := range layout.omims {
		if v, ok := row.Get(ParsedOMIMCol(i)); ok && v != nv.OMIM {
			rec.OMIMs = append(rec.OMIMs, v)
		}
	}

	phenotypes, err := decodePhenotypes(row, layout, nv)
	if err != nil {
		return rec, err
	}
	rec.Phenotypes = phenotypes

	variants, err := decodeVariants(row, layout, consts)
	if err != nil {
		return rec, err
	}
	rec.Variants = variants
	return rec, nil
}

func decodePhenotypes(row registry.Row, layout Layout, nv config.NoValue) ([]Phenotype, error) {
	counts := layout.phenotypeColumnCounts()
	if counts[0] != counts[1] || counts[0] != counts[2] || counts[0] != counts[3] {
		return nil, LengthMismatchError{
			What:    "phenotype codes, onsets, labels and statuses",
			Lengths: counts[:],
		}
	}

	var out []Phenotype
	for _, i := range layout.PhenotypeSlots() {
		code, ok := row.Get(PhenotypeCol(i))
		if !ok || code == nv.Phenotype {
			continue
		}
		onset, ok := row.Get(ParsedPhenotypeDateCol(i))
		if !ok || onset == nv.Date {
			continue
		}
		label, _ := row.Get(ParsedPhenotypeLabelCol(i))
		raw, _ := row.Get(ParsedPhenotypeStatusCol(i))
		status, err := decodeStatus(raw, nv.Recorded)
		if err != nil {
			return nil, fmt.Errorf("phenotype slot %d: %w", i, err)
		}
		out = append(out, Phenotype{Slot: i, Code: code, Onset: onset, Label: label, Status: status})
	}
	return out, nil
}

func decodeStatus(raw, notRecorded string) (PhenotypeStatus, error) {
	switch raw {
	case terminology.StatusObserved:
		return StatusObserved, nil
	case terminology.StatusExcluded:
		return StatusExcluded, nil
	case notRecorded, "":
		return StatusNotRecorded, nil
	default:
		return StatusNotRecorded, parsing.FormatError{
			Field: "phenotype status",
			Value: raw,
			Want:  fmt.Sprintf("%q, %q or %q", terminology.StatusExcluded, terminology.StatusObserved, notRecorded),
		}
	}
}

func decodeVariants(row registry.Row, layout Layout, consts *config.Constants) ([]Variant, error) {
	ids := consts.Mapping.VariantDescriptorIDs
	if len(layout.variants) > len(ids) {
		return nil, LengthMismatchError{
			What:    "variant descriptor ids and variant slots",
			Lengths: []int{len(ids), len(layout.variants)},
		}
	}

	noMutation := consts.NoValue.Mutation
	var out []Variant
	for k, i := range layout.variants {
		var hgvs []string
		for _, col := range []string{PHGVSCol(i), CHGVSCol(i)} {
			if v, ok := row.Get(col); ok && v != noMutation {
				hgvs = append(hgvs, v)
			}
		}
		if len(hgvs) == 0 {
			// a slot without any HGVS expression is treated as absent
			continue
		}
		v := Variant{Slot: i, DescriptorID: ids[k], HGVS: hgvs}
		v.Zygosity, _ = row.Get(ParsedZygosityCol(i))
		v.AlleleLabel, _ = row.Get(AlleleLabelCol(i))
		out = append(out, v)
	}
	return out, nil
}

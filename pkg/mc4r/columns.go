package mc4r

import (
	"fmt"
	"sort"
)

// Registry export columns.
const (
	ColRecordID        = "record_id"
	ColYearOfBirth     = "sct_184099003_y"
	ColSex             = "sct_281053000"
	ColDateOfDiagnosis = "sct_432213005"
	ColOrpha           = "sct_439401001_orpha"
	ColHGNC            = "ln_48018_6_1"
)

// Columns added by preprocessing.
const (
	ColID                    = "mc4r_id"
	ColParsedYearOfBirth     = "parsed_year_of_birth"
	ColParsedSex             = "parsed_sex"
	ColParsedDateOfDiagnosis = "parsed_date_of_diagnosis"
)

// Repeated slots per registry row.
const (
	VariantSlots   = 3
	OMIMSlots      = 2
	PhenotypeSlots = 11
)

func ZygosityCol(i int) string { return fmt.Sprintf("ln_48007_9_%d", i) }
func ParsedZygosityCol(i int) string { return fmt.Sprintf("parsed_zygosity_%d", i) }
func AlleleLabelCol(i int) string { return fmt.Sprintf("allele_label_%d", i) }
func PHGVSCol(i int) string { return fmt.Sprintf("ln_48005_3_%d", i) }
func CHGVSCol(i int) string { return fmt.Sprintf("ln_48004_6_%d", i) }
func OMIMCol(i int) string { return fmt.Sprintf("sct_439401001_omim_g_%d", i) }
func ParsedOMIMCol(i int) string { return fmt.Sprintf("parsed_omim_%d", i) }
func PhenotypeCol(i int) string { return fmt.Sprintf("sct_8116006_%d", i) }
func PhenotypeDateCol(i int) string { return fmt.Sprintf("sct_8116006_%d_date", i) }
func PhenotypeStatusCol(i int) string { return fmt.Sprintf("sct_8116006_%d_status", i) }
func ParsedPhenotypeDateCol(i int) string { return fmt.Sprintf("parsed_date_of_phenotyping%d", i) }
func ParsedPhenotypeStatusCol(i int) string { return fmt.Sprintf("parsed_phenotype_status%d", i) }
func ParsedPhenotypeLabelCol(i int) string { return fmt.Sprintf("parsed_phenotype_label%d", i) }

// Layout records which repeated slots a preprocessed table carries. It is
// computed once per table and shared by every row decode.
type Layout struct {
	// phenotype slot -> which of code, onset, label, status columns exist
	phenotypes map[int][4]bool
	variants   []int
	omims      []int
}

func NewLayout(hasColumn func(string) bool) Layout {
	l := Layout{phenotypes: make(map[int][4]bool)}
	for i := 1; i <= PhenotypeSlots; i++ {
		cols := [4]bool{
			hasColumn(PhenotypeCol(i)),
			hasColumn(ParsedPhenotypeDateCol(i)),
			hasColumn(ParsedPhenotypeLabelCol(i)),
			hasColumn(ParsedPhenotypeStatusCol(i)),
		}
		if cols[0] || cols[1] || cols[2] || cols[3] {
			l.phenotypes[i] = cols
		}
	}
	for i := 1; i <= VariantSlots; i++ {
		if hasColumn(ParsedZygosityCol(i)) || hasColumn(PHGVSCol(i)) || hasColumn(CHGVSCol(i)) {
			l.variants = append(l.variants, i)
		}
	}
	for i := 1; i <= OMIMSlots; i++ {
		if hasColumn(ParsedOMIMCol(i)) {
			l.omims = append(l.omims, i)
		}
	}
	return l
}

// PhenotypeSlots returns the phenotype slot numbers present, ascending.
func (l Layout) PhenotypeSlots() []int {
	slots := make([]int, 0, len(l.phenotypes))
	for i := range l.phenotypes {
		slots = append(slots, i)
	}
	sort.Ints(slots)
	return slots
}

func (l Layout) VariantSlots() []int {
	return append([]int(nil), l.variants...)
}

// phenotypeColumnCounts returns how many code, onset, label and status
// columns the layout has over all phenotype slots.
func (l Layout) phenotypeColumnCounts() [4]int {
	var counts [4]int
	for _, cols := range l.phenotypes {
		for k, ok := range cols {
			if ok {
				counts[k]++
			}
		}
	}
	return counts
}

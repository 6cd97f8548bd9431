package mc4r

import (
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"
	"github.com/synaptica-ai/erker2phenopackets/pkg/common/config"
	"github.com/synaptica-ai/erker2phenopackets/pkg/common/logger"
	"github.com/synaptica-ai/erker2phenopackets/pkg/parsing"
	"github.com/synaptica-ai/erker2phenopackets/pkg/registry"
	"github.com/synaptica-ai/erker2phenopackets/pkg/terminology"
)

// Rejection is a row removed during preprocessing because one of its cells
// could not be parsed.
type Rejection struct {
	Row   int    `json:"row"`
	RowID string `json:"row_id"`
	Err   error  `json:"-"`
}

// columnStep parses from into to and then fills the remaining nulls of to.
// A step with a nil parse only fills. A step bound to a slot column applies
// only when the table has that column, and then creates to even if from is
// absent. Unbound steps are skipped when from is absent.
type columnStep struct {
	name  string
	from  string
	to    string
	parse func(string) (string, error)
	fill  string
	slot  string
}

type Preprocessor struct {
	Constants *config.Constants
	Catalog   terminology.Catalog
	// KeepGoing removes rows with unparsable cells and reports them instead
	// of aborting on the first one.
	KeepGoing bool
}

// Preprocess runs the column pipeline in place and fails on the first cell
// that does not parse.
func Preprocess(t *registry.Table, consts *config.Constants, cat terminology.Catalog) error {
	p := &Preprocessor{Constants: consts, Catalog: cat}
	_, err := p.Run(t)
	return err
}

func (p *Preprocessor) Run(t *registry.Table) ([]Rejection, error) {
	log := logger.WithField("rows", t.Len())

	for _, stat := range t.NullAnalysis() {
		if stat.Nulls > 0 {
			log.WithFields(logrus.Fields{
				"column": stat.Column,
				"nulls":  stat.Nulls,
				"ratio":  stat.Ratio,
			}).Debug("null values in column")
		}
	}
	if dropped := t.DropNullColumns(true, false); len(dropped) > 0 {
		log.WithField("columns", dropped).Info("dropped all-null columns")
	}
	if t.HasColumn(ColRecordID) {
		if err := t.DropColumn(ColRecordID); err != nil {
			return nil, err
		}
		log.Info("dropped record_id column, since it is not unique")
	}
	t.AddIDColumn(ColID, "")
	log.Info("added mc4r_id as id column")

	rejected := make(map[int]error)
	for _, step := range p.steps() {
		if step.slot != "" && !t.HasColumn(step.slot) {
			continue
		}
		if !t.HasColumn(step.from) {
			if step.slot == "" {
				continue
			}
			t.EnsureColumn(step.to)
		} else if step.parse != nil {
			logger.Log.WithField("column", step.from).Tracef("parsing %s", step.name)
			err := t.MapColumnRows(step.from, step.to, func(i int, v string) (string, error) {
				if _, bad := rejected[i]; bad {
					return "", nil
				}
				out, err := step.parse(v)
				if err != nil && p.KeepGoing {
					rejected[i] = fmt.Errorf("column %s: %w", step.from, err)
					return "", nil
				}
				return out, err
			})
			if err != nil {
				return nil, err
			}
		}
		if step.fill != "" {
			if err := t.FillNull(step.to, step.fill); err != nil {
				return nil, err
			}
		}
	}

	if len(rejected) == 0 {
		return nil, nil
	}
	rows := make([]int, 0, len(rejected))
	for i := range rejected {
		rows = append(rows, i)
	}
	sort.Ints(rows)
	rejections := make([]Rejection, len(rows))
	for k, i := range rows {
		id, _ := t.Value(i, ColID)
		rejections[k] = Rejection{Row: i, RowID: id, Err: rejected[i]}
		log.WithError(rejected[i]).WithField("row_id", id).Warn("row rejected during preprocessing")
	}
	t.DeleteRows(rows)
	return rejections, nil
}

func (p *Preprocessor) steps() []columnStep {
	nv := p.Constants.NoValue
	m := p.Constants.Mapping
	cat := p.Catalog

	steps := []columnStep{
		{
			name: "year of birth",
			from: ColYearOfBirth,
			to:   ColParsedYearOfBirth,
			parse: func(v string) (string, error) {
				return parsing.YearOfBirthString(v, m.YearOfBirthMin, m.YearOfBirthMax)
			},
		},
		{
			name:  "sex",
			from:  ColSex,
			to:    ColParsedSex,
			parse: func(v string) (string, error) { return parsing.Sex(v, cat) },
		},
		{
			name:  "date of diagnosis",
			from:  ColDateOfDiagnosis,
			to:    ColParsedDateOfDiagnosis,
			parse: func(v string) (string, error) { return parsing.DateString(v, nv.Date) },
			fill:  nv.Date,
		},
	}

	for i := 1; i <= VariantSlots; i++ {
		steps = append(steps,
			columnStep{
				name:  "zygosity",
				from:  ZygosityCol(i),
				to:    ParsedZygosityCol(i),
				parse: func(v string) (string, error) { return parsing.Zygosity(v, cat) },
			},
			columnStep{
				name:  "allele label",
				from:  ZygosityCol(i),
				to:    AlleleLabelCol(i),
				parse: func(v string) (string, error) { return parsing.AlleleLabel(v, cat) },
			},
			columnStep{name: "p.HGVS", from: PHGVSCol(i), to: PHGVSCol(i), fill: nv.Mutation},
			columnStep{name: "c.HGVS", from: CHGVSCol(i), to: CHGVSCol(i), fill: nv.Mutation},
		)
	}

	for i := 1; i <= OMIMSlots; i++ {
		steps = append(steps, columnStep{
			name:  "OMIM",
			from:  OMIMCol(i),
			to:    ParsedOMIMCol(i),
			parse: func(v string) (string, error) { return parsing.OMIM(v, nv.OMIM) },
			fill:  nv.OMIM,
		})
	}

	for i := 1; i <= PhenotypeSlots; i++ {
		steps = append(steps,
			columnStep{name: "phenotype", from: PhenotypeCol(i), to: PhenotypeCol(i), fill: nv.Phenotype},
			columnStep{
				name:  "date of phenotyping",
				from:  PhenotypeDateCol(i),
				to:    ParsedPhenotypeDateCol(i),
				parse: func(v string) (string, error) { return parsing.DateString(v, nv.Date) },
				fill:  nv.Date,
				slot:  PhenotypeCol(i),
			},
			columnStep{
				name:  "phenotype label",
				from:  PhenotypeCol(i),
				to:    ParsedPhenotypeLabelCol(i),
				parse: func(v string) (string, error) { return parsing.PhenotypeLabel(v, cat), nil },
			},
			// a phenotype without a status column is not recorded
			columnStep{
				name:  "phenotype status",
				from:  PhenotypeStatusCol(i),
				to:    ParsedPhenotypeStatusCol(i),
				parse: func(v string) (string, error) { return parsing.PhenotypeStatus(v, cat, nv.Recorded) },
				fill:  nv.Recorded,
				slot:  PhenotypeCol(i),
			},
		)
	}
	return steps
}

package mc4r

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/synaptica-ai/erker2phenopackets/pkg/common/config"
	"github.com/synaptica-ai/erker2phenopackets/pkg/common/logger"
	"github.com/synaptica-ai/erker2phenopackets/pkg/common/models"
	"github.com/synaptica-ai/erker2phenopackets/pkg/registry"
)

const hgvsSyntax = "hgvs"

var HumanTaxonomy = models.OntologyClass{ID: "NCBITaxon:9606", Label: "Homo sapiens"}

// RowResult is the outcome of mapping one row when failures are isolated per
// row. Exactly one of Document and Err is set.
type RowResult struct {
	RowID    string
	Document *models.Phenopacket
	Err      error
}

// Mapper turns preprocessed MC4R rows into phenopackets. It holds only
// read-only state and is safe for concurrent use.
type Mapper struct {
	constants *config.Constants
	metaData  *models.MetaData
	taxonomy  models.OntologyClass
	newID     func() string
}

// NewMapper builds the batch metadata once from the date created
// (YYYY-MM-DD); every document of the batch shares it.
func NewMapper(consts *config.Constants, created string) (*Mapper, error) {
	if consts == nil {
		return nil, fmt.Errorf("mapper: constants are required")
	}
	meta, err := BuildMetaData(consts, created)
	if err != nil {
		return nil, err
	}
	return &Mapper{
		constants: consts,
		metaData:  meta,
		taxonomy:  HumanTaxonomy,
		newID:     func() string { return uuid.New().String() },
	}, nil
}

func (m *Mapper) MetaData() *models.MetaData {
	return m.metaData
}

// MapRow decodes and maps one row.
func (m *Mapper) MapRow(row registry.Row, layout Layout) (*models.Phenopacket, error) {
	rec, err := DecodeRecord(row, layout, m.constants)
	if err != nil {
		return nil, err
	}
	return m.MapRecord(rec), nil
}

func (m *Mapper) MapRecord(rec Record) *models.Phenopacket {
	disease := models.OntologyClass{ID: rec.Orpha, Label: m.constants.Mapping.DiseaseLabel}
	return &models.Phenopacket{
		ID:                 rec.ID,
		Subject:            m.individual(rec),
		PhenotypicFeatures: phenotypicFeatures(rec.Phenotypes),
		Interpretations:    []models.Interpretation{m.interpretation(rec, disease)},
		Diseases:           []models.Disease{m.disease(rec, disease)},
		MetaData:           m.metaData,
	}
}

// MapChunk maps every row of chunk in order and stops at the first failure.
func (m *Mapper) MapChunk(chunk *registry.Table) ([]*models.Phenopacket, error) {
	layout := NewLayout(chunk.HasColumn)
	docs := make([]*models.Phenopacket, 0, chunk.Len())
	for i := 0; i < chunk.Len(); i++ {
		row := chunk.Row(i)
		doc, err := m.MapRow(row, layout)
		if err != nil {
			id, _ := row.Get(ColID)
			return nil, RowError{RowID: id, Err: err}
		}
		logger.Log.WithFields(logrus.Fields{
			"row":  i + 1,
			"rows": chunk.Len(),
			"id":   doc.ID,
		}).Trace("mapped row")
		docs = append(docs, doc)
	}
	return docs, nil
}

// MapChunkResults maps every row of chunk and reports each failure next to its
// row instead of stopping.
func (m *Mapper) MapChunkResults(chunk *registry.Table) []RowResult {
	layout := NewLayout(chunk.HasColumn)
	results := make([]RowResult, chunk.Len())
	for i := range results {
		row := chunk.Row(i)
		id, _ := row.Get(ColID)
		doc, err := m.MapRow(row, layout)
		if err != nil {
			results[i] = RowResult{RowID: id, Err: RowError{RowID: id, Err: err}}
			continue
		}
		results[i] = RowResult{RowID: id, Document: doc}
	}
	return results
}

func (m *Mapper) individual(rec Record) *models.Individual {
	taxonomy := m.taxonomy
	return &models.Individual{
		ID:          rec.ID,
		DateOfBirth: rec.DateOfBirth,
		Sex:         rec.Sex,
		Taxonomy:    &taxonomy,
	}
}

// phenotypicFeatures drops phenotypes whose status was not recorded.
func phenotypicFeatures(phenotypes []Phenotype) []models.PhenotypicFeature {
	var features []models.PhenotypicFeature
	for _, p := range phenotypes {
		if p.Status == StatusNotRecorded {
			continue
		}
		features = append(features, models.PhenotypicFeature{
			Type:     models.OntologyClass{ID: p.Code, Label: p.Label},
			Excluded: p.Status == StatusExcluded,
			Onset:    &models.TimeElement{Timestamp: p.Onset},
		})
	}
	return features
}

func (m *Mapper) disease(rec Record, term models.OntologyClass) models.Disease {
	d := models.Disease{Term: term}
	if m.constants.Mapping.AttachDiseaseOnset && rec.DateOfDiagnosis != "" {
		d.Onset = &models.TimeElement{Timestamp: rec.DateOfDiagnosis}
	}
	return d
}

func (m *Mapper) geneContext(rec Record) *models.GeneDescriptor {
	if rec.HGNC == "" {
		return nil
	}
	return &models.GeneDescriptor{
		ValueID:      rec.HGNC,
		Symbol:       m.constants.Mapping.GeneDescriptorSymbol,
		AlternateIDs: append([]string(nil), rec.OMIMs...),
	}
}

func (m *Mapper) interpretation(rec Record, disease models.OntologyClass) models.Interpretation {
	genomic := make([]models.GenomicInterpretation, 0, len(rec.Variants))
	for _, v := range rec.Variants {
		expressions := make([]models.Expression, len(v.HGVS))
		for i, h := range v.HGVS {
			expressions[i] = models.Expression{Syntax: hgvsSyntax, Value: h}
		}
		descriptor := models.VariationDescriptor{
			ID:          v.DescriptorID,
			GeneContext: m.geneContext(rec),
			Expressions: expressions,
		}
		if v.Zygosity != "" {
			descriptor.AllelicState = &models.OntologyClass{ID: v.Zygosity, Label: v.AlleleLabel}
		}
		genomic = append(genomic, models.GenomicInterpretation{
			SubjectOrBiosampleID:  rec.ID,
			InterpretationStatus:  m.constants.Mapping.InterpretationStatus,
			VariantInterpretation: &models.VariantInterpretation{VariationDescriptor: descriptor},
		})
	}

	return models.Interpretation{
		ID:             m.newID(),
		ProgressStatus: m.constants.Mapping.ProgressStatus,
		Diagnosis: &models.Diagnosis{
			Disease:                disease,
			GenomicInterpretations: genomic,
		},
	}
}

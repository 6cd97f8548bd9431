package models

import "time"

// Phenopacket document (schema v2, protobuf JSON field names)
type Phenopacket struct {
	ID                 string              `json:"id"`
	Subject            *Individual         `json:"subject,omitempty"`
	PhenotypicFeatures []PhenotypicFeature `json:"phenotypicFeatures,omitempty"`
	Interpretations    []Interpretation    `json:"interpretations,omitempty"`
	Diseases           []Disease           `json:"diseases,omitempty"`
	MetaData           *MetaData           `json:"metaData,omitempty"`
}

type OntologyClass struct {
	ID    string `json:"id"`
	Label string `json:"label,omitempty"`
}

type TimeElement struct {
	Timestamp string `json:"timestamp,omitempty"` // YYYY-MM-DDT00:00:00.00Z
}

type Individual struct {
	ID          string         `json:"id"`
	DateOfBirth string         `json:"dateOfBirth,omitempty"`
	Sex         string         `json:"sex,omitempty"` // FEMALE, MALE, OTHER_SEX, UNKNOWN_SEX
	Taxonomy    *OntologyClass `json:"taxonomy,omitempty"`
}

type PhenotypicFeature struct {
	Type     OntologyClass `json:"type"`
	Excluded bool          `json:"excluded,omitempty"`
	Onset    *TimeElement  `json:"onset,omitempty"`
}

type Disease struct {
	Term  OntologyClass `json:"term"`
	Onset *TimeElement  `json:"onset,omitempty"`
}

// Interpretation blocks
type Interpretation struct {
	ID             string     `json:"id"`
	ProgressStatus string     `json:"progressStatus,omitempty"` // SOLVED, UNSOLVED, IN_PROGRESS, ...
	Diagnosis      *Diagnosis `json:"diagnosis,omitempty"`
}

type Diagnosis struct {
	Disease                OntologyClass           `json:"disease"`
	GenomicInterpretations []GenomicInterpretation `json:"genomicInterpretations,omitempty"`
}

type GenomicInterpretation struct {
	SubjectOrBiosampleID  string                 `json:"subjectOrBiosampleId"`
	InterpretationStatus  string                 `json:"interpretationStatus,omitempty"`
	VariantInterpretation *VariantInterpretation `json:"variantInterpretation,omitempty"`
}

type VariantInterpretation struct {
	VariationDescriptor VariationDescriptor `json:"variationDescriptor"`
}

type VariationDescriptor struct {
	ID           string          `json:"id"`
	GeneContext  *GeneDescriptor `json:"geneContext,omitempty"`
	Expressions  []Expression    `json:"expressions,omitempty"`
	AllelicState *OntologyClass  `json:"allelicState,omitempty"`
}

type Expression struct {
	Syntax string `json:"syntax"` // hgvs
	Value  string `json:"value"`
}

type GeneDescriptor struct {
	ValueID      string   `json:"valueId"`
	Symbol       string   `json:"symbol"`
	AlternateIDs []string `json:"alternateIds,omitempty"`
}

// Metadata
type MetaData struct {
	Created                  string     `json:"created"`
	CreatedBy                string     `json:"createdBy"`
	Resources                []Resource `json:"resources,omitempty"`
	PhenopacketSchemaVersion string     `json:"phenopacketSchemaVersion"`
}

type Resource struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	URL             string `json:"url"`
	Version         string `json:"version"`
	NamespacePrefix string `json:"namespacePrefix"`
	IRIPrefix       string `json:"iriPrefix"`
}

// Event Bus models
type Event struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"` // phenopacket.created, run.completed
	Source    string                 `json:"source"`
	Data      map[string]interface{} `json:"data"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]string      `json:"metadata,omitempty"`
}

// Pipeline runs
type RunReport struct {
	RunID         string    `json:"run_id"`
	DataPath      string    `json:"data_path"`
	OutputDir     string    `json:"output_dir"`
	RowsRead      int       `json:"rows_read"`
	Documents     int       `json:"documents"`
	FailedRows    int       `json:"failed_rows"`
	Validated     bool      `json:"validated"`
	InvalidFiles  int       `json:"invalid_files"`
	StartedAt     time.Time `json:"started_at"`
	FinishedAt    time.Time `json:"finished_at"`
	FailedRowIDs  []string  `json:"failed_row_ids,omitempty"`
	CreationStamp string    `json:"creation_stamp"`
}

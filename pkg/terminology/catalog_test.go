package terminology

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultCatalogLookups(t *testing.T) {
	cat := DefaultCatalog()

	if v, ok := cat.LookupSex(" sct_248152002 "); !ok || v != "FEMALE" {
		t.Fatalf("expected FEMALE, got %q (ok=%v)", v, ok)
	}
	if v, ok := cat.LookupZygosity("ln_LA6707-9"); !ok || v != "GENO:0000134" {
		t.Fatalf("expected GENO:0000134, got %q (ok=%v)", v, ok)
	}
	if _, ok := cat.LookupZygosity("LN_LA6707-9"); ok {
		t.Fatal("lookups must be case sensitive")
	}
	if v, ok := cat.LookupPhenotypeStatus("sct_723511001"); !ok || v != StatusExcluded {
		t.Fatalf("expected excluded status, got %q", v)
	}
}

func TestLoadCatalog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "terminology.yaml")
	content := []byte(`sex:
  sct_248153007: MALE
zygosity:
  ln_LA6705-3: "GENO:0000136"
allele_label:
  ln_LA6706-1: heterozygous
phenotype_status:
  sct_410605003: "false"
`)
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("write catalog: %v", err)
	}

	cat, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v, _ := cat.LookupSex("sct_248153007"); v != "MALE" {
		t.Fatalf("expected MALE, got %q", v)
	}
	if v, _ := cat.LookupAlleleLabel("ln_LA6706-1"); v != "heterozygous" {
		t.Fatalf("expected heterozygous, got %q", v)
	}
	if _, ok := cat.LookupPhenotypeLabel("HP:0001513"); ok {
		t.Fatal("phenotype label table was not provided")
	}
}

func TestLoadCatalogRequiresTables(t *testing.T) {
	path := filepath.Join(t.TempDir(), "terminology.yaml")
	content := []byte(`sex: {a: MALE}
zygosity: {b: "GENO:0000136"}
phenotype_status: {c: "true"}
`)
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("write catalog: %v", err)
	}
	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "allele_label") {
		t.Fatalf("expected missing allele_label error, got %v", err)
	}
}

func TestLoadCatalogRejectsBadStatus(t *testing.T) {
	path := filepath.Join(t.TempDir(), "terminology.yaml")
	content := []byte(`sex: {a: MALE}
zygosity: {b: "GENO:0000136"}
allele_label: {b: heterozygous}
phenotype_status: {c: "maybe"}
`)
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("write catalog: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for unknown status value")
	}
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cat, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cat.Sex) != 4 {
		t.Fatalf("expected 4 sex codes, got %d", len(cat.Sex))
	}
}

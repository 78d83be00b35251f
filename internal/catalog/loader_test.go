package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/ecosheet/ecosheet-backend/pkg/config"
)

const emissionCSV = `industry,code,product_name,emission_factor,weight_factor,total_emission,category,is_base_product
생활용품,P001,친환경 세제,1.2,0.5,6.0,세제,FALSE
생활용품,P002,일반 세제,2.4,0.5,12.0,세제,FALSE
생활용품,P003,표준 세제,2.0,0.5,10.0,세제,TRUE
식품,P010,"유기농 쌀, 10kg",0.8,10,8.0,곡물,FALSE
`

const baselineCSV = `category,base_product_name,product_code,base_emission
세제,표준 세제,P003,10.0
`

func writeTempCatalog(t *testing.T) config.CatalogConfig {
	t.Helper()
	dir := t.TempDir()
	emissionPath := filepath.Join(dir, "emission.csv")
	baselinePath := filepath.Join(dir, "baseline.csv")
	if err := os.WriteFile(emissionPath, []byte(emissionCSV), 0o644); err != nil {
		t.Fatalf("write emission csv: %v", err)
	}
	if err := os.WriteFile(baselinePath, []byte(baselineCSV), 0o644); err != nil {
		t.Fatalf("write baseline csv: %v", err)
	}
	return config.CatalogConfig{EmissionPath: emissionPath, BaselinePath: baselinePath}
}

func TestLoaderParsesEntriesAndBaselines(t *testing.T) {
	loader := NewLoader(writeTempCatalog(t), nil)
	cat, err := loader.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cat.Size() != 4 {
		t.Fatalf("expected 4 entries, got %d", cat.Size())
	}

	entry, ok := cat.Lookup("친환경 세제")
	if !ok {
		t.Fatal("missing entry 친환경 세제")
	}
	if entry.TotalEmission.String() != "6" || entry.Category != "세제" {
		t.Fatalf("unexpected entry %+v", entry)
	}

	baseline, ok := cat.Baseline("세제")
	if !ok || baseline.String() != "10" {
		t.Fatalf("baseline = %v, %v", baseline, ok)
	}

	// Quoted product names with embedded commas parse as one field.
	if _, ok := cat.Lookup("유기농 쌀, 10kg"); !ok {
		t.Fatal("quoted product name with comma not parsed")
	}
}

func TestLoaderBackfillsBaselineFromBaseProduct(t *testing.T) {
	dir := t.TempDir()
	emissionPath := filepath.Join(dir, "emission.csv")
	baselinePath := filepath.Join(dir, "baseline.csv")
	emission := "industry,code,product_name,emission_factor,weight_factor,total_emission,category,is_base_product\n" +
		"식품,P020,표준 쌀,1.0,10,9.5,곡물,TRUE\n"
	if err := os.WriteFile(emissionPath, []byte(emission), 0o644); err != nil {
		t.Fatalf("write emission csv: %v", err)
	}
	if err := os.WriteFile(baselinePath, []byte("category,base_product_name,product_code,base_emission\n"), 0o644); err != nil {
		t.Fatalf("write baseline csv: %v", err)
	}

	cat, err := NewLoader(config.CatalogConfig{EmissionPath: emissionPath, BaselinePath: baselinePath}, nil).Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	baseline, ok := cat.Baseline("곡물")
	if !ok || baseline.String() != "9.5" {
		t.Fatalf("backfilled baseline = %v, %v", baseline, ok)
	}
}

func TestLoaderMissingFileFails(t *testing.T) {
	loader := NewLoader(config.CatalogConfig{
		EmissionPath: filepath.Join(t.TempDir(), "absent.csv"),
		BaselinePath: filepath.Join(t.TempDir(), "absent.csv"),
	}, nil)
	if _, err := loader.Load(context.Background()); err == nil {
		t.Fatal("expected error for missing reference files")
	}
}

func TestLoaderCachesAcrossCalls(t *testing.T) {
	cfg := writeTempCatalog(t)
	loader := NewLoader(cfg, nil)
	first, err := loader.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	// Replacing the file after first load must not change the cached view.
	if err := os.WriteFile(cfg.EmissionPath, []byte("industry,code,product_name,emission_factor,weight_factor,total_emission,category,is_base_product\n"), 0o644); err != nil {
		t.Fatalf("rewrite emission csv: %v", err)
	}
	second, err := loader.Load(context.Background())
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if first != second || second.Size() != 4 {
		t.Fatalf("expected cached catalog, got %d entries", second.Size())
	}
}

package catalog

import (
	"context"
	"encoding/base64"
	"testing"
	"time"
)

func sampleRecords() (*ProductRecord, ExtractionRecord) {
	product := &ProductRecord{
		Name:      "Fancy Outfit",
		Tags:      []string{"Fancy", "Outfit", "alice"},
		Author:    "alice",
		CreatedAt: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
	}
	extraction := ExtractionRecord{
		ArchiveFileName: "IM00013176-01_Fancy_Outfit.zip",
		DestinationPath: "/library",
		ExtractedFiles:  []string{"Content/data/model.dsf"},
		Folders:         []string{"Content", "Content/data"},
		ExpectedSize:    1234,
	}
	return product, extraction
}

func TestLocalAddAndReadRecord(t *testing.T) {
	store, err := NewLocal(t.TempDir(), "")
	if err != nil {
		t.Fatalf("new local: %v", err)
	}
	product, extraction := sampleRecords()

	id, err := store.AddRecord(context.Background(), product, extraction)
	if err != nil {
		t.Fatalf("add record: %v", err)
	}
	if id == 0 {
		t.Fatalf("expected nonzero id")
	}

	gotProduct, gotExtraction, err := store.ReadRecord(id)
	if err != nil {
		t.Fatalf("read record: %v", err)
	}
	if gotProduct == nil || gotProduct.Name != "Fancy Outfit" {
		t.Fatalf("unexpected product: %+v", gotProduct)
	}
	if gotExtraction.ArchiveFileName != extraction.ArchiveFileName {
		t.Fatalf("unexpected extraction: %+v", gotExtraction)
	}
}

func TestLocalIDsIncrease(t *testing.T) {
	store, err := NewLocal(t.TempDir(), "")
	if err != nil {
		t.Fatalf("new local: %v", err)
	}
	_, extraction := sampleRecords()
	first, err := store.AddRecord(context.Background(), nil, extraction)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	second, err := store.AddRecord(context.Background(), nil, extraction)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if second <= first {
		t.Fatalf("ids not increasing: %d then %d", first, second)
	}
}

func TestLocalEncryptedRoundTrip(t *testing.T) {
	key := base64.StdEncoding.EncodeToString(make([]byte, 32))
	dir := t.TempDir()
	store, err := NewLocal(dir, key)
	if err != nil {
		t.Fatalf("new local: %v", err)
	}
	product, extraction := sampleRecords()
	id, err := store.AddRecord(context.Background(), product, extraction)
	if err != nil {
		t.Fatalf("add record: %v", err)
	}

	gotProduct, _, err := store.ReadRecord(id)
	if err != nil {
		t.Fatalf("read record: %v", err)
	}
	if gotProduct == nil || gotProduct.Author != "alice" {
		t.Fatalf("unexpected product after decrypt: %+v", gotProduct)
	}

	// A store without the key must fail to decode.
	plain, err := NewLocal(dir, "")
	if err != nil {
		t.Fatalf("new local: %v", err)
	}
	if _, _, err := plain.ReadRecord(id); err == nil {
		t.Fatalf("expected failure reading encrypted record without key")
	}
}

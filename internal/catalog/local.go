package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/siblount/DazProductInstaller/internal/cryptoutil"
)

const recordSuffix = ".record.json"

// Local writes one JSON document per record under a records directory,
// optionally sealed with a DARE stream when a key is configured.
type Local struct {
	BasePath string

	key    []byte
	mu     sync.Mutex
	nextID uint64
}

func NewLocal(path, encryptionKey string) (*Local, error) {
	l := &Local{BasePath: path}
	if encryptionKey != "" {
		key, err := cryptoutil.ParseKey(encryptionKey)
		if err != nil {
			return nil, fmt.Errorf("catalog encryption key: %w", err)
		}
		l.key = key
	}
	l.nextID = l.scanNextID()

	return l, nil
}

// scanNextID resumes the id sequence from existing record files.
func (l *Local) scanNextID() uint64 {
	var max uint64
	entries, err := os.ReadDir(l.BasePath)
	if err != nil {
		return 1
	}
	for _, e := range entries {
		name := e.Name()
		if !strings.HasSuffix(name, recordSuffix) {
			continue
		}
		id, err := strconv.ParseUint(strings.TrimSuffix(name, recordSuffix), 10, 64)
		if err == nil && id > max {
			max = id
		}
	}
	return max + 1
}

func (l *Local) AddRecord(ctx context.Context, product *ProductRecord, extraction ExtractionRecord) (uint64, error) {
	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	default:
	}

	l.mu.Lock()
	id := l.nextID
	l.nextID++
	l.mu.Unlock()

	if product != nil {
		product.ID = id
	}
	payload, err := json.MarshalIndent(record{Product: product, Extraction: extraction}, "", "  ")
	if err != nil {
		return 0, err
	}

	if err := os.MkdirAll(l.BasePath, 0o750); err != nil {
		return 0, fmt.Errorf("create records dir: %w", err)
	}
	target := filepath.Join(l.BasePath, fmt.Sprintf("%d%s", id, recordSuffix))
	f, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	if l.key == nil {
		_, err = f.Write(payload)
		return id, err
	}
	w, err := cryptoutil.EncryptWriter(f, l.key)
	if err != nil {
		return 0, err
	}
	if _, err := w.Write(payload); err != nil {
		return 0, err
	}
	return id, w.Close()
}

// ReadRecord loads one persisted record, decrypting when a key is set.
func (l *Local) ReadRecord(id uint64) (*ProductRecord, ExtractionRecord, error) {
	data, err := os.ReadFile(filepath.Join(l.BasePath, fmt.Sprintf("%d%s", id, recordSuffix)))
	if err != nil {
		return nil, ExtractionRecord{}, err
	}
	if l.key != nil {
		r, err := cryptoutil.DecryptReader(bytes.NewReader(data), l.key)
		if err != nil {
			return nil, ExtractionRecord{}, err
		}
		buf := &bytes.Buffer{}
		if _, err := buf.ReadFrom(r); err != nil {
			return nil, ExtractionRecord{}, err
		}
		data = buf.Bytes()
	}
	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, ExtractionRecord{}, err
	}
	return rec.Product, rec.Extraction, nil
}

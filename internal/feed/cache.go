package feed

import (
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

const (
	RawFile      = "raw_jobs.json"
	MetadataFile = "scrape_metadata.json"

	DefaultMaxAge = 24 * time.Hour
)

// Metadata describes a cached raw feed.
type Metadata struct {
	RunID      string    `json:"run_id"`
	ConfigHash string    `json:"config_hash"`
	ScrapedAt  time.Time `json:"scraped_at"`
	JobCount   int       `json:"job_count"`
}

// HashFile returns the hex sha256 of the file content.
func HashFile(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	h := sha256.New()
	if _, err := io.Copy(h, file); err != nil {
		return "", err
	}
	return fmt.Sprintf("%x", h.Sum(nil)), nil
}

// WriteRaw stores records and their metadata in dir.
func WriteRaw(dir string, records []Record, configPath string, now time.Time) (*Metadata, error) {
	hash, err := HashFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("hashing search config: %w", err)
	}

	if records == nil {
		records = []Record{}
	}

	meta := &Metadata{
		RunID:      uuid.NewString(),
		ConfigHash: hash,
		ScrapedAt:  now.UTC(),
		JobCount:   len(records),
	}

	if err := writeJSON(filepath.Join(dir, RawFile), records); err != nil {
		return nil, err
	}
	if err := writeJSON(filepath.Join(dir, MetadataFile), meta); err != nil {
		return nil, err
	}
	return meta, nil
}

func ReadRaw(dir string) ([]Record, error) {
	file, err := os.Open(filepath.Join(dir, RawFile))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	dec := json.NewDecoder(file)
	dec.UseNumber()

	var records []Record
	if err := dec.Decode(&records); err != nil {
		return nil, fmt.Errorf("decode %s: %w", RawFile, err)
	}
	return records, nil
}

func ReadMetadata(dir string) (*Metadata, error) {
	data, err := os.ReadFile(filepath.Join(dir, MetadataFile))
	if err != nil {
		return nil, err
	}

	var meta Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("decode %s: %w", MetadataFile, err)
	}
	return &meta, nil
}

// CacheValid reports whether the cached feed in dir was produced from the same
// search config less than maxAge ago.
func CacheValid(dir, configPath string, maxAge time.Duration, now time.Time) (bool, error) {
	if _, err := os.Stat(filepath.Join(dir, RawFile)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}

	meta, err := ReadMetadata(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}

	hash, err := HashFile(configPath)
	if err != nil {
		return false, err
	}
	if hash != meta.ConfigHash {
		return false, nil
	}

	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	return now.Sub(meta.ScrapedAt) < maxAge, nil
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	return os.WriteFile(path, data, 0o644)
}

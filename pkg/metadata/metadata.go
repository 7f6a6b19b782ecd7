// Package metadata provides utilities for stamping and verifying exported documents.
package metadata

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// TagStart is the start of the metadata block.
	TagStart = "<!-- METADATA_START"
	// TagEnd is the end of the metadata block.
	TagEnd = "METADATA_END -->"
)

// Metadata verification errors.
var (
	ErrNoMetadataBlock = errors.New("no metadata block found")
	ErrNoHashFound     = errors.New("no hash found in metadata")
	ErrHashMismatch    = errors.New("hash mismatch")
)

// Metadata describes one export run.
type Metadata struct {
	ExportedAt time.Time
	DatabaseID string
	RunID      string
	Hash       string
	Rows       int
}

// metadataRegex matches the entire metadata block including tags.
var metadataRegex = regexp.MustCompile(`(?s)<!--\s*METADATA_START\s*\n(.*?)\n\s*METADATA_END\s*-->`)

// Extract removes the metadata block from content and returns both the metadata and the cleaned content.
// The cleaned content is what gets hashed.
func Extract(content string) (*Metadata, string) {
	match := metadataRegex.FindStringSubmatch(content)
	cleanContent := metadataRegex.ReplaceAllString(content, "")
	// Trim trailing newlines from cleaned content for consistent hashing
	cleanContent = strings.TrimRight(cleanContent, "\n")

	if len(match) < 2 {
		return nil, cleanContent
	}

	meta := &Metadata{}

	for line := range strings.SplitSeq(match[1], "\n") {
		key, val, ok := strings.Cut(strings.TrimSpace(line), ":")
		if !ok {
			continue
		}

		key = strings.TrimSpace(key)
		val = strings.TrimSpace(val)

		switch key {
		case "EXPORTED_AT":
			if t, err := time.Parse(time.RFC3339, val); err == nil {
				meta.ExportedAt = t
			}
		case "DATABASE_ID":
			meta.DatabaseID = val
		case "RUN_ID":
			meta.RunID = val
		case "ROWS":
			if n, err := strconv.Atoi(val); err == nil {
				meta.Rows = n
			}
		case "HASH":
			meta.Hash = val
		}
	}

	return meta, cleanContent
}

// CalculateHash computes the SHA-256 hash of the content (excluding metadata).
func CalculateHash(content string) string {
	_, clean := Extract(content)
	hash := sha256.Sum256([]byte(clean))

	return hex.EncodeToString(hash[:])
}

// Sign replaces any metadata block in content with a fresh one describing meta.
// A zero ExportedAt becomes the current time and an empty RunID a new UUID.
// The returned Metadata carries the values that were written.
func Sign(content string, meta Metadata) (string, Metadata) {
	_, clean := Extract(content)

	meta.Hash = CalculateHash(clean)

	if meta.ExportedAt.IsZero() {
		meta.ExportedAt = time.Now()
	}

	meta.ExportedAt = meta.ExportedAt.UTC().Truncate(time.Second)

	if meta.RunID == "" {
		meta.RunID = uuid.NewString()
	}

	block := fmt.Sprintf("\n\n%s\nDATABASE_ID: %s\nRUN_ID: %s\nROWS: %d\nEXPORTED_AT: %s\nHASH: %s\n%s\n",
		TagStart, meta.DatabaseID, meta.RunID, meta.Rows, meta.ExportedAt.Format(time.RFC3339), meta.Hash, TagEnd)

	return clean + block, meta
}

// Verify checks if the content matches the hash in its metadata.
func Verify(content string) (bool, error) {
	meta, clean := Extract(content)
	if meta == nil {
		return false, ErrNoMetadataBlock
	}

	if meta.Hash == "" {
		return false, ErrNoHashFound
	}

	calculated := CalculateHash(clean)
	if calculated != meta.Hash {
		return false, fmt.Errorf("%w: expected %s, got %s", ErrHashMismatch, meta.Hash, calculated)
	}

	return true, nil
}

package models

import (
	"strings"
	"time"
)

// TimestampLayout is the human-readable local time format of CreatedAt.
const TimestampLayout = "2006-01-02 15:04:05"

// EncryptedRecord describes one vaulted file. Records are never edited once
// created; the index only appends and removes them.
type EncryptedRecord struct {
	DisplayName       string `json:"name"`
	OriginalExtension string `json:"original_extension"`
	EncryptedPath     string `json:"encrypted_path"`
	Size              int64  `json:"size"`
	CreatedAt         string `json:"created_at"`
}

// NewRecord builds a record for a freshly sealed file.
func NewRecord(displayName, encryptedPath string, size int64, createdAt time.Time) EncryptedRecord {
	return EncryptedRecord{
		DisplayName:       displayName,
		OriginalExtension: Extension(displayName),
		EncryptedPath:     encryptedPath,
		Size:              size,
		CreatedAt:         createdAt.Local().Format(TimestampLayout),
	}
}

// Extension returns the lower-cased text after the last dot, or "".
func Extension(name string) string {
	idx := strings.LastIndex(name, ".")
	if idx < 0 {
		return ""
	}
	return strings.ToLower(name[idx+1:])
}

// CloneRecords returns a copy that shares nothing with records.
func CloneRecords(records []EncryptedRecord) []EncryptedRecord {
	out := make([]EncryptedRecord, len(records))
	copy(out, records)
	return out
}

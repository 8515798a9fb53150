// Package backup writes timestamped catalog snapshots and prunes old
// ones. A replace import drops every existing row, so the importer takes
// a snapshot first; restoring is a matter of reading the file back.
//
// A snapshot file is a plain JSON header line followed by the
// gzip-compressed row payload. The header carries a checksum of the
// payload, so a truncated or tampered file is rejected on read.
package backup

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"cantina/internal/catalog"
	"cantina/internal/pathutil"
)

// FormatVersion is written into every snapshot header.
const FormatVersion = 1

// MaxPayloadSize caps the decompressed payload at 200MB.
const MaxPayloadSize = 200 * 1024 * 1024

// Header is the plain-text first line of a snapshot file.
type Header struct {
	Version    int       `json:"version"`
	CreatedAt  time.Time `json:"created_at"`
	Checksum   string    `json:"checksum"`
	RowCount   int       `json:"row_count"`
	Compressed bool      `json:"compressed"`
}

// Snapshot is the full catalog state captured at one point in time.
type Snapshot struct {
	Version   int           `json:"version"`
	CreatedAt time.Time     `json:"created_at"`
	Rows      []catalog.Row `json:"rows"`
}

// New builds a snapshot of rows stamped with the current time.
func New(rows []catalog.Row) *Snapshot {
	return &Snapshot{
		Version:   FormatVersion,
		CreatedAt: time.Now().UTC(),
		Rows:      rows,
	}
}

// Write stores snap as a timestamped file under dir and returns the path.
// The generated path is checked for containment in dir before anything
// touches the filesystem.
func Write(dir string, snap *Snapshot) (string, error) {
	path := GeneratePath(dir, snap.CreatedAt)
	if err := pathutil.ValidatePath(path, []string{dir}); err != nil {
		return "", err
	}

	payload, err := json.Marshal(snap)
	if err != nil {
		return "", fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	var compressed bytes.Buffer
	gzw := gzip.NewWriter(&compressed)
	if _, err := gzw.Write(payload); err != nil {
		return "", fmt.Errorf("failed to compress snapshot: %w", err)
	}
	if err := gzw.Close(); err != nil {
		return "", fmt.Errorf("failed to compress snapshot: %w", err)
	}

	hash := sha256.Sum256(compressed.Bytes())
	header := Header{
		Version:    FormatVersion,
		CreatedAt:  snap.CreatedAt,
		Checksum:   "sha256:" + hex.EncodeToString(hash[:]),
		RowCount:   len(snap.Rows),
		Compressed: true,
	}
	headerBytes, err := json.Marshal(header)
	if err != nil {
		return "", fmt.Errorf("failed to marshal snapshot header: %w", err)
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return "", fmt.Errorf("failed to create snapshot file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(headerBytes, '\n')); err != nil {
		return "", fmt.Errorf("failed to write snapshot header: %w", err)
	}
	if _, err := f.Write(compressed.Bytes()); err != nil {
		return "", fmt.Errorf("failed to write snapshot payload: %w", err)
	}

	return path, nil
}

// Read loads a snapshot file, verifying the header checksum before the
// payload is decompressed or parsed.
func Read(path string) (*Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot: %w", err)
	}
	defer f.Close()

	reader := bufio.NewReader(f)
	headerLine, err := reader.ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot header: %w", err)
	}

	var header Header
	if err := json.Unmarshal(bytes.TrimSpace(headerLine), &header); err != nil {
		return nil, fmt.Errorf("failed to parse snapshot header: %w", err)
	}
	if header.Version != FormatVersion {
		return nil, fmt.Errorf("unsupported snapshot version: %d", header.Version)
	}

	compressed, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot payload: %w", err)
	}

	hash := sha256.Sum256(compressed)
	if got := "sha256:" + hex.EncodeToString(hash[:]); got != header.Checksum {
		return nil, fmt.Errorf("snapshot checksum mismatch: expected %s, got %s", header.Checksum, got)
	}

	gzr, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, fmt.Errorf("failed to decompress snapshot: %w", err)
	}
	defer gzr.Close()

	decompressed, err := io.ReadAll(io.LimitReader(gzr, MaxPayloadSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to decompress snapshot: %w", err)
	}
	if int64(len(decompressed)) > MaxPayloadSize {
		return nil, fmt.Errorf("snapshot payload exceeds %d bytes", MaxPayloadSize)
	}

	var snap Snapshot
	if err := json.Unmarshal(decompressed, &snap); err != nil {
		return nil, fmt.Errorf("failed to parse snapshot: %w", err)
	}
	return &snap, nil
}

// GeneratePath builds the snapshot filename for a capture time.
func GeneratePath(dir string, at time.Time) string {
	return filepath.Join(dir, fmt.Sprintf("catalog-%s.backup", at.Format("20060102-150405")))
}

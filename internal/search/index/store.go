// Package index implements the full-text index over Redis via rueidis.
// Documents are stored as hashes under a configurable key prefix and covered
// by a RediSearch index; the index is a separate storage engine from the
// relational store, so its mutations are never covered by the relational
// transaction.
package index

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/rueidis"

	apperrors "github.com/allisson/filecatalog/internal/errors"
)

// Config holds connection and naming parameters for the search store.
type Config struct {
	Addrs     []string
	Username  string
	Password  string
	IndexName string
	KeyPrefix string
}

// Store wraps a rueidis client with the catalog's document and index operations.
type Store struct {
	client    rueidis.Client
	indexName string
	keyPrefix string
}

// Entry is the stored form of an indexed document, including the recorded
// signature used for drift detection.
type Entry struct {
	FileID          uuid.UUID
	Title           string
	Author          string
	Extension       string
	MimeType        string
	Content         string
	ContentHash     string
	TokenHash       string
	AnalyzerVersion int
	SchemaVersion   int
	IndexedAt       time.Time
}

// NewStore creates a search store via rueidis.
func NewStore(cfg Config) (*Store, error) {
	if len(cfg.Addrs) == 0 {
		return nil, apperrors.New("search addrs is required")
	}

	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  cfg.Addrs,
		Username:     cfg.Username,
		Password:     cfg.Password,
		DisableCache: true,
		AlwaysRESP2:  true, // FT.SEARCH result parsing expects RESP2 array format
	})
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to create search client")
	}

	return &Store{
		client:    client,
		indexName: cfg.IndexName,
		keyPrefix: cfg.KeyPrefix,
	}, nil
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	cmd := s.client.B().Ping().Build()
	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		return apperrors.Wrap(err, "search ping")
	}
	return nil
}

// Close shuts down the client.
func (s *Store) Close() {
	s.client.Close()
}

// IndexName returns the configured full-text index name.
func (s *Store) IndexName() string {
	return s.indexName
}

// EnsureIndex creates the full-text index if it does not already exist.
func (s *Store) EnsureIndex(ctx context.Context) error {
	args := []string{
		s.indexName,
		"ON", "HASH",
		"PREFIX", "1", s.keyPrefix,
		"SCHEMA",
		"title", "TEXT",
		"content", "TEXT",
		"author", "TAG",
		"extension", "TAG",
		"mime_type", "TAG",
	}

	cmd := s.client.B().Arbitrary("FT.CREATE").Args(args...).Build()
	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		if isRedisErr(err, "index already exists") {
			return nil
		}
		return apperrors.Wrap(err, "failed to create search index")
	}
	return nil
}

// DropIndex removes the full-text index definition. Stored documents are kept
// so a following EnsureIndex rebuilds the index from them.
func (s *Store) DropIndex(ctx context.Context) error {
	cmd := s.client.B().Arbitrary("FT.DROPINDEX").Args(s.indexName).Build()
	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		if isRedisErr(err, "unknown index name") {
			return nil
		}
		return apperrors.Wrap(err, "failed to drop search index")
	}
	return nil
}

// CheckIndex probes the index via FT.INFO. A missing or unreadable index is
// reported as corruption.
func (s *Store) CheckIndex(ctx context.Context) error {
	cmd := s.client.B().Arbitrary("FT.INFO").Args(s.indexName).Build()
	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		if isRedisErr(err, "unknown index name") {
			return apperrors.Wrap(apperrors.ErrIndexCorrupted, "index definition missing")
		}
		return apperrors.Wrap(err, "failed to check search index")
	}
	return nil
}

// GetEntry loads the stored document for a file. Returns (nil, nil) when no
// entry exists.
func (s *Store) GetEntry(ctx context.Context, fileID uuid.UUID) (*Entry, error) {
	cmd := s.client.B().Hgetall().Key(s.key(fileID)).Build()
	fields, err := s.client.Do(ctx, cmd).AsStrMap()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to load index entry")
	}
	if len(fields) == 0 {
		return nil, nil
	}
	return entryFromFields(fileID, fields), nil
}

// Delete removes a document immediately, outside any scope.
func (s *Store) Delete(ctx context.Context, fileID uuid.UUID) error {
	cmd := s.client.B().Del().Key(s.key(fileID)).Build()
	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		return apperrors.Wrap(err, "failed to delete index entry")
	}
	return nil
}

// ListIDs pages through the index and returns every indexed file id.
// A missing index definition is reported as corruption.
func (s *Store) ListIDs(ctx context.Context, pageSize int) ([]uuid.UUID, error) {
	if pageSize <= 0 {
		pageSize = 500
	}

	var ids []uuid.UUID
	for offset := 0; ; offset += pageSize {
		cmd := s.client.B().Arbitrary("FT.SEARCH").
			Args(s.indexName, "*", "NOCONTENT",
				"LIMIT", strconv.Itoa(offset), strconv.Itoa(pageSize)).
			Build()

		raw, err := s.client.Do(ctx, cmd).ToArray()
		if err != nil {
			if isRedisErr(err, "unknown index name") {
				return nil, apperrors.Wrap(apperrors.ErrIndexCorrupted, "index definition missing")
			}
			return nil, apperrors.Wrap(err, "failed to list index entries")
		}
		if len(raw) == 0 {
			break
		}

		total, err := raw[0].AsInt64()
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to parse search total")
		}

		for _, msg := range raw[1:] {
			key, err := msg.ToString()
			if err != nil {
				return nil, apperrors.Wrap(err, "failed to parse search key")
			}
			id, err := uuid.Parse(strings.TrimPrefix(key, s.keyPrefix))
			if err != nil {
				// Not one of ours, skip.
				continue
			}
			ids = append(ids, id)
		}

		if int64(offset+pageSize) >= total {
			break
		}
	}

	return ids, nil
}

// key builds the document key for a file id.
func (s *Store) key(fileID uuid.UUID) string {
	return s.keyPrefix + fileID.String()
}

// entryFromFields decodes a stored hash into an Entry.
func entryFromFields(fileID uuid.UUID, fields map[string]string) *Entry {
	entry := &Entry{
		FileID:      fileID,
		Title:       fields["title"],
		Author:      fields["author"],
		Extension:   fields["extension"],
		MimeType:    fields["mime_type"],
		Content:     fields["content"],
		ContentHash: fields["content_hash"],
		TokenHash:   fields["token_hash"],
	}
	entry.AnalyzerVersion, _ = strconv.Atoi(fields["analyzer_version"])
	entry.SchemaVersion, _ = strconv.Atoi(fields["schema_version"])
	if ts, err := strconv.ParseInt(fields["indexed_at"], 10, 64); err == nil {
		entry.IndexedAt = time.Unix(ts, 0).UTC()
	}
	return entry
}

// entryFields encodes an Entry into hash fields.
func entryFields(entry *Entry) map[string]string {
	return map[string]string{
		"id":               entry.FileID.String(),
		"title":            entry.Title,
		"author":           entry.Author,
		"extension":        entry.Extension,
		"mime_type":        entry.MimeType,
		"content":          entry.Content,
		"content_hash":     entry.ContentHash,
		"token_hash":       entry.TokenHash,
		"analyzer_version": strconv.Itoa(entry.AnalyzerVersion),
		"schema_version":   strconv.Itoa(entry.SchemaVersion),
		"indexed_at":       strconv.FormatInt(entry.IndexedAt.Unix(), 10),
	}
}

// isRedisErr checks if err is a Redis server error containing substr (case-insensitive).
func isRedisErr(err error, substr string) bool {
	re, ok := rueidis.IsRedisErr(err)
	if !ok {
		return false
	}
	return strings.Contains(strings.ToLower(re.Error()), strings.ToLower(substr))
}

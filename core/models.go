package core

//go:generate go run ../cmd/musgen

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// Metadata keys attached to every IndexEntry.
const (
	MetaOrganization = "organization"
	MetaDocumentType = "document_type"
	MetaIssueDate    = "issue_date"
	MetaDocumentID   = "document_id"
	MetaSection      = "section"
	MetaText         = "text"
	MetaCIK          = "cik"
)

// Section is one named block of a document's text.
type Section struct {
	Name string
	Text string
}

// Document is one ingested filing. Sections keep the order in which the
// collector discovered them; names are unique within a document.
type Document struct {
	ID           string // Accession or version number
	Organization string
	CIK          string // Optional registrant identifier
	Type         string // Form type, e.g. "10-K"
	IssueDate    string
	Sections     []Section
}

// Window is a word-bounded slice of one section's text.
type Window struct {
	DocumentID string
	Section    string
	Seq        int // 0-based within the section
	Text       string
}

// ID returns the index identifier of the window.
func (w Window) ID() string {
	return MakeID(w.DocumentID, w.Section, w.Seq)
}

// MakeID builds the identifier of an index entry. The result depends only on
// its arguments, so re-ingesting a document overwrites its previous entries.
func MakeID(documentID, section string, seq int) string {
	return documentID + "#" + section + "#" + strconv.Itoa(seq)
}

// IndexEntry is the unit persisted to the vector store.
type IndexEntry struct {
	ID       string
	Vector   []float32
	Metadata map[string]string
}

// NewIndexEntry builds the entry for an embedded window, carrying the
// document-level metadata.
func NewIndexEntry(doc *Document, w Window, vector []float32) *IndexEntry {
	meta := map[string]string{
		MetaOrganization: doc.Organization,
		MetaDocumentType: doc.Type,
		MetaIssueDate:    doc.IssueDate,
		MetaDocumentID:   doc.ID,
		MetaSection:      w.Section,
		MetaText:         w.Text,
	}
	if doc.CIK != "" {
		meta[MetaCIK] = doc.CIK
	}
	return &IndexEntry{
		ID:       w.ID(),
		Vector:   vector,
		Metadata: meta,
	}
}

// ChunkParams are the parameters that determine window boundaries and
// therefore entry identifiers. They are pinned per collection.
type ChunkParams struct {
	WindowSize     int
	Overlap        int
	EmbeddingModel string
}

// Validate checks the window preconditions.
func (p ChunkParams) Validate() error {
	if p.WindowSize < 1 {
		return fmt.Errorf("%w: window size %d", ErrInvalidChunkParams, p.WindowSize)
	}
	if p.Overlap < 0 || p.Overlap >= p.WindowSize {
		return fmt.Errorf("%w: overlap %d with window size %d", ErrInvalidChunkParams, p.Overlap, p.WindowSize)
	}
	return nil
}

// Fingerprint returns a stable BLAKE2b-64 digest of the parameters.
func (p ChunkParams) Fingerprint() uint64 {
	h, _ := blake2b.New(8, nil)
	h.Write([]byte(p.String()))
	return binary.LittleEndian.Uint64(h.Sum(nil))
}

func (p ChunkParams) String() string {
	return fmt.Sprintf("window=%d overlap=%d model=%s", p.WindowSize, p.Overlap, p.EmbeddingModel)
}

// ParamsPin is the ledger value recording the parameters a collection was
// built with.
type ParamsPin struct {
	Params      ChunkParams
	Fingerprint uint64
	PinnedAt    time.Time
}

// NewParamsPin pins params at the given time.
func NewParamsPin(params ChunkParams, at time.Time) ParamsPin {
	return ParamsPin{Params: params, Fingerprint: params.Fingerprint(), PinnedAt: at.UTC()}
}

// Matches reports whether params has the pinned fingerprint.
func (p ParamsPin) Matches(params ChunkParams) bool {
	return p.Fingerprint == params.Fingerprint()
}

// Outcome is the result of processing one document.
type Outcome struct {
	DocumentID       string
	Source           string
	Success          bool
	Sections         int // Sections that produced at least one window
	Windows          int
	EmbeddingBatches int
	FailedBatches    int
	UpsertBatches    int
	EntriesWritten   int
	Elapsed          time.Duration
	Err              error // First error encountered, if any
}

// Reason describes why the document failed, or "" on success.
func (o Outcome) Reason() string {
	if o.Err == nil {
		return ""
	}
	return o.Err.Error()
}

// Failure names a failed document and why.
type Failure struct {
	DocumentID string
	Source     string
	Reason     string
}

// Summary aggregates the outcomes of one run.
type Summary struct {
	RunID            string
	Params           ChunkParams
	StartedAt        time.Time
	Documents        int
	Succeeded        int
	Failed           int
	Skipped          int // Sources never submitted because the run was stopped
	Windows          int
	EmbeddingBatches int
	UpsertBatches    int
	EntriesWritten   int
	Elapsed          time.Duration
	Failures         []Failure
}

// Add folds one outcome into the summary. Not safe for concurrent use; the
// scheduler's aggregator is its only caller during a run.
func (s *Summary) Add(o Outcome) {
	s.Documents++
	s.Windows += o.Windows
	s.EmbeddingBatches += o.EmbeddingBatches
	s.UpsertBatches += o.UpsertBatches
	s.EntriesWritten += o.EntriesWritten
	if o.Success {
		s.Succeeded++
		return
	}
	s.Failed++
	s.Failures = append(s.Failures, Failure{
		DocumentID: o.DocumentID,
		Source:     o.Source,
		Reason:     o.Reason(),
	})
}

// DocsPerSecond is document throughput over the run's elapsed time.
func (s *Summary) DocsPerSecond() float64 {
	if s.Elapsed <= 0 {
		return 0
	}
	return float64(s.Documents) / s.Elapsed.Seconds()
}

// EntriesPerSecond is index write throughput over the run's elapsed time.
func (s *Summary) EntriesPerSecond() float64 {
	if s.Elapsed <= 0 {
		return 0
	}
	return float64(s.EntriesWritten) / s.Elapsed.Seconds()
}

// RunRecord is the persisted summary of one ingestion run.
type RunRecord struct {
	ID             string
	Collection     string
	Params         ChunkParams
	Fingerprint    uint64 // Params.Fingerprint() when the run was recorded
	StartedAt      time.Time
	Elapsed        time.Duration
	Documents      int
	Succeeded      int
	Failed         int
	Skipped        int
	EntriesWritten int
	Failures       []Failure
}

// NewRunRecord captures a finished run for the ledger.
func NewRunRecord(collection string, s *Summary) *RunRecord {
	return &RunRecord{
		ID:             s.RunID,
		Collection:     collection,
		Params:         s.Params,
		Fingerprint:    s.Params.Fingerprint(),
		StartedAt:      s.StartedAt,
		Elapsed:        s.Elapsed,
		Documents:      s.Documents,
		Succeeded:      s.Succeeded,
		Failed:         s.Failed,
		Skipped:        s.Skipped,
		EntriesWritten: s.EntriesWritten,
		Failures:       append([]Failure(nil), s.Failures...),
	}
}

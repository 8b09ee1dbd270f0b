package core

import (
	"errors"
	"testing"
	"time"
)

func TestMakeID(t *testing.T) {
	if got := MakeID("ACC1", "risk", 0); got != "ACC1#risk#0" {
		t.Errorf("MakeID() = %q, want %q", got, "ACC1#risk#0")
	}
	if got := MakeID("0001-24-000123", "Item 1A", 17); got != "0001-24-000123#Item 1A#17" {
		t.Errorf("MakeID() = %q", got)
	}
}

func TestMakeID_Stable(t *testing.T) {
	for i := 0; i < 5; i++ {
		if MakeID("d", "s", 3) != MakeID("d", "s", 3) {
			t.Fatal("MakeID() not stable for identical input")
		}
	}
}

func TestMakeID_DiffersOnEachInput(t *testing.T) {
	base := MakeID("d", "s", 1)
	tests := []struct {
		name string
		id   string
	}{
		{"document", MakeID("e", "s", 1)},
		{"section", MakeID("d", "t", 1)},
		{"sequence", MakeID("d", "s", 2)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.id == base {
				t.Errorf("MakeID() collided on differing %s: %q", tt.name, tt.id)
			}
		})
	}
}

func TestWindow_ID(t *testing.T) {
	w := Window{DocumentID: "ACC1", Section: "risk", Seq: 1, Text: "c d"}
	if w.ID() != "ACC1#risk#1" {
		t.Errorf("Window.ID() = %q", w.ID())
	}
}

func TestNewIndexEntry(t *testing.T) {
	doc := &Document{
		ID:           "ACC1",
		Organization: "Acme Corp",
		CIK:          "320193",
		Type:         "10-K",
		IssueDate:    "2024-11-01",
	}
	w := Window{DocumentID: "ACC1", Section: "risk", Seq: 0, Text: "a b"}
	entry := NewIndexEntry(doc, w, []float32{0.1, 0.2})

	if entry.ID != "ACC1#risk#0" {
		t.Errorf("ID = %q", entry.ID)
	}
	want := map[string]string{
		MetaOrganization: "Acme Corp",
		MetaDocumentType: "10-K",
		MetaIssueDate:    "2024-11-01",
		MetaDocumentID:   "ACC1",
		MetaSection:      "risk",
		MetaText:         "a b",
		MetaCIK:          "320193",
	}
	for k, v := range want {
		if entry.Metadata[k] != v {
			t.Errorf("Metadata[%q] = %q, want %q", k, entry.Metadata[k], v)
		}
	}
	if len(entry.Vector) != 2 {
		t.Errorf("Vector length = %d", len(entry.Vector))
	}
}

func TestNewIndexEntry_NoCIK(t *testing.T) {
	doc := &Document{ID: "ACC1", Organization: "Acme", Type: "10-K", IssueDate: "2024-01-01"}
	entry := NewIndexEntry(doc, Window{DocumentID: "ACC1", Section: "s"}, nil)
	if _, ok := entry.Metadata[MetaCIK]; ok {
		t.Error("cik metadata should be absent when the document has none")
	}
}

func TestChunkParams_Validate(t *testing.T) {
	tests := []struct {
		name    string
		params  ChunkParams
		wantErr bool
	}{
		{"valid", ChunkParams{WindowSize: 1000, Overlap: 100}, false},
		{"zero overlap", ChunkParams{WindowSize: 2, Overlap: 0}, false},
		{"zero window", ChunkParams{WindowSize: 0, Overlap: 0}, true},
		{"overlap equals window", ChunkParams{WindowSize: 3, Overlap: 3}, true},
		{"negative overlap", ChunkParams{WindowSize: 3, Overlap: -1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.params.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidChunkParams) {
				t.Errorf("Validate() error = %v, want ErrInvalidChunkParams", err)
			}
		})
	}
}

func TestChunkParams_Fingerprint(t *testing.T) {
	a := ChunkParams{WindowSize: 1000, Overlap: 100, EmbeddingModel: "text-embedding-3-small"}
	b := a
	if a.Fingerprint() != b.Fingerprint() {
		t.Error("Fingerprint() differs for equal params")
	}
	b.Overlap = 50
	if a.Fingerprint() == b.Fingerprint() {
		t.Error("Fingerprint() equal for different overlap")
	}
}

func TestParamsPin_Matches(t *testing.T) {
	params := ChunkParams{WindowSize: 1000, Overlap: 100, EmbeddingModel: "m"}
	pin := NewParamsPin(params, time.Date(2025, 1, 2, 3, 4, 5, 0, time.FixedZone("EST", -5*3600)))
	if pin.Fingerprint != params.Fingerprint() {
		t.Errorf("Fingerprint = %x, want %x", pin.Fingerprint, params.Fingerprint())
	}
	if pin.PinnedAt.Location() != time.UTC {
		t.Errorf("PinnedAt location = %v, want UTC", pin.PinnedAt.Location())
	}
	if !pin.Matches(params) {
		t.Error("Matches() false for the pinned params")
	}
	changed := params
	changed.EmbeddingModel = "other"
	if pin.Matches(changed) {
		t.Error("Matches() true for a different model")
	}
}

func TestNewRunRecord_Fingerprint(t *testing.T) {
	s := Summary{RunID: "r1", Params: ChunkParams{WindowSize: 4, EmbeddingModel: "m"}}
	run := NewRunRecord("c", &s)
	if run.Fingerprint != s.Params.Fingerprint() {
		t.Errorf("Fingerprint = %x, want %x", run.Fingerprint, s.Params.Fingerprint())
	}
}

func TestSummary_Add(t *testing.T) {
	var s Summary
	s.Add(Outcome{DocumentID: "a", Success: true, Windows: 4, EmbeddingBatches: 1, UpsertBatches: 1, EntriesWritten: 4})
	s.Add(Outcome{DocumentID: "b", Source: "b.json", Windows: 2, EmbeddingBatches: 1, Err: errors.New("boom")})

	if s.Documents != 2 || s.Succeeded != 1 || s.Failed != 1 {
		t.Fatalf("counts = %d/%d/%d", s.Documents, s.Succeeded, s.Failed)
	}
	if s.Windows != 6 || s.EntriesWritten != 4 || s.EmbeddingBatches != 2 {
		t.Errorf("totals = windows %d entries %d batches %d", s.Windows, s.EntriesWritten, s.EmbeddingBatches)
	}
	if len(s.Failures) != 1 || s.Failures[0].DocumentID != "b" || s.Failures[0].Reason != "boom" {
		t.Errorf("Failures = %+v", s.Failures)
	}
}

func TestSummary_Throughput(t *testing.T) {
	s := Summary{Documents: 10, EntriesWritten: 200, Elapsed: 2 * time.Second}
	if s.DocsPerSecond() != 5 {
		t.Errorf("DocsPerSecond() = %v", s.DocsPerSecond())
	}
	if s.EntriesPerSecond() != 100 {
		t.Errorf("EntriesPerSecond() = %v", s.EntriesPerSecond())
	}
	var empty Summary
	if empty.DocsPerSecond() != 0 {
		t.Error("DocsPerSecond() should be 0 with no elapsed time")
	}
}

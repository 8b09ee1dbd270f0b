package storage

import (
	"bytes"
	"testing"
	"time"

	"github.com/poiesic/edgarindex/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleEntry() *core.IndexEntry {
	doc := &core.Document{
		ID:           "0000320193-24-000123",
		Organization: "Apple Inc.",
		CIK:          "0000320193",
		Type:         "10-K",
		IssueDate:    "2024-11-01",
	}
	w := core.Window{DocumentID: doc.ID, Section: "Item 1A", Seq: 2, Text: "risk factors text"}
	return core.NewIndexEntry(doc, w, []float32{0.25, -1.5, 3.0e-7, 0})
}

func TestIndexEntryRoundTrip(t *testing.T) {
	entry := sampleEntry()

	data := MarshalIndexEntry(entry)
	require.NotEmpty(t, data)

	decoded, err := UnmarshalIndexEntry(data)
	require.NoError(t, err)
	assert.Equal(t, entry.ID, decoded.ID)
	assert.Equal(t, entry.Vector, decoded.Vector)
	assert.Equal(t, entry.Metadata, decoded.Metadata)
}

func TestIndexEntryEncodingIsDeterministic(t *testing.T) {
	// Map iteration order must not leak into the encoding.
	first := MarshalIndexEntry(sampleEntry())
	for i := 0; i < 20; i++ {
		assert.True(t, bytes.Equal(first, MarshalIndexEntry(sampleEntry())))
	}
}

func TestUnmarshalIndexEntry_Truncated(t *testing.T) {
	data := MarshalIndexEntry(sampleEntry())

	_, err := UnmarshalIndexEntry(data[:len(data)/2])
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSerializationFailed)
}

func TestRunRecordRoundTrip(t *testing.T) {
	run := &core.RunRecord{
		ID:             "2f1c6b7e-4b8a-4c1e-9d55-0c7f3f6d2a10",
		Collection:     "edgar_filings",
		Params:         core.ChunkParams{WindowSize: 1000, Overlap: 100, EmbeddingModel: "text-embedding-3-small"},
		Fingerprint:    0x9e3779b97f4a7c15,
		StartedAt:      time.Date(2025, 3, 14, 9, 26, 53, 589000, time.UTC),
		Elapsed:        90 * time.Second,
		Documents:      5,
		Succeeded:      4,
		Failed:         1,
		EntriesWritten: 812,
		Failures: []core.Failure{
			{DocumentID: "ACC3", Source: "acc3.json", Reason: "embedding batch of 100 failed: boom"},
		},
	}

	decoded, err := UnmarshalRunRecord(MarshalRunRecord(run))
	require.NoError(t, err)
	assert.Equal(t, run, decoded)
}

func TestParamsPinRoundTrip(t *testing.T) {
	params := core.ChunkParams{WindowSize: 5, Overlap: 2, EmbeddingModel: "nomic-embed-text"}
	pin := core.NewParamsPin(params, time.Date(2025, 3, 14, 9, 26, 53, 589000, time.UTC))

	decoded, err := UnmarshalParamsPin(MarshalParamsPin(pin))
	require.NoError(t, err)
	assert.Equal(t, pin, *decoded)
	assert.True(t, decoded.Matches(params))
}

func TestUnmarshalParamsPin_Truncated(t *testing.T) {
	pin := core.NewParamsPin(core.ChunkParams{WindowSize: 5, EmbeddingModel: "m"}, time.Now())
	data := MarshalParamsPin(pin)

	_, err := UnmarshalParamsPin(data[:len(data)-1])
	assert.ErrorIs(t, err, ErrSerializationFailed)
}

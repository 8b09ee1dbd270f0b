// Package ingestion provides pipeline orchestration for indexing filings.
//
// The FileProcessor turns one document into index entries end to end:
//   - Chunking each section into overlapping word windows
//   - Embedding the windows in bounded, order-preserving batches
//   - Upserting the resulting entries in bounded batches
//
// The Scheduler runs one FileProcessor invocation per source on a fixed-size
// worker pool and folds the outcomes into a run summary. A failure in one
// document is captured in its outcome and never affects other documents.
//
// The Watcher feeds files that appear in a directory to the Scheduler until
// its context is cancelled.
package ingestion

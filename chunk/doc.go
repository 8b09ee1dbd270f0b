// Package chunk splits section text into overlapping, word-bounded windows.
//
// Windows are measured in words, not characters. Each window after the first
// starts exactly overlap words before the end of its predecessor, and the last
// window may be shorter than the window size. Split is a pure function: the
// same input always yields the same windows, which keeps index identifiers
// stable across re-ingestion.
package chunk

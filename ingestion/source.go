// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ingestion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/poiesic/edgarindex/core"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Source yields one document to process.
type Source interface {
	// Name identifies the source in outcomes and logs.
	Name() string

	// Load reads and decodes the document.
	Load(ctx context.Context) (*core.Document, error)
}

// FileSource is a document stored as a JSON file.
type FileSource struct {
	Path string
}

var _ Source = FileSource{}

// Name returns the file's base name.
func (s FileSource) Name() string {
	return filepath.Base(s.Path)
}

// Load reads and decodes the file.
func (s FileSource) Load(ctx context.Context) (*core.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, err
	}
	return DecodeDocument(data)
}

// DocumentSource wraps a document that is already in memory.
type DocumentSource struct {
	Label    string
	Document *core.Document
}

var _ Source = DocumentSource{}

// Name returns the label, or the document ID if no label is set.
func (s DocumentSource) Name() string {
	if s.Label != "" || s.Document == nil {
		return s.Label
	}
	return s.Document.ID
}

// Load returns the wrapped document.
func (s DocumentSource) Load(ctx context.Context) (*core.Document, error) {
	if s.Document == nil {
		return nil, fmt.Errorf("%w: no document", ErrParse)
	}
	return s.Document, nil
}

// DiscoverSources lists the *.json files in dir, in lexical order.
func DiscoverSources(dir string) ([]Source, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var sources []Source
	for _, entry := range entries {
		if entry.IsDir() || !isDocumentFile(entry.Name()) {
			continue
		}
		sources = append(sources, FileSource{Path: filepath.Join(dir, entry.Name())})
	}
	return sources, nil
}

func isDocumentFile(path string) bool {
	name := filepath.Base(path)
	return strings.EqualFold(filepath.Ext(name), ".json") && !strings.HasPrefix(name, ".")
}

// sortSources orders sources by name.
func sortSources(sources []Source) {
	sort.SliceStable(sources, func(i, j int) bool {
		return sources[i].Name() < sources[j].Name()
	})
}

// documentRecord is the on-disk shape of a document. The collector's older
// key names are accepted alongside the current ones.
type documentRecord struct {
	DocumentID      string     `json:"document_id"`
	AccessionNumber string     `json:"accession_number"`
	Organization    string     `json:"organization"`
	Company         string     `json:"company"`
	DocumentType    string     `json:"document_type"`
	Form            string     `json:"form"`
	FormType        string     `json:"form_type"`
	IssueDate       string     `json:"issue_date"`
	FilingDate      string     `json:"filing_date"`
	CIK             flexString `json:"cik"`

	Sections *orderedmap.OrderedMap[string, json.RawMessage] `json:"sections"`
}

// flexString accepts a JSON string or number.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("cik must be a string or number: %w", err)
	}
	*f = flexString(n.String())
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// DecodeDocument parses a JSON document record. Section order follows the
// order of keys in the input. A section whose value is not a string is kept
// with empty text.
func DecodeDocument(data []byte) (*core.Document, error) {
	var rec documentRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParse, err)
	}

	doc := &core.Document{
		ID:           firstNonEmpty(rec.DocumentID, rec.AccessionNumber),
		Organization: firstNonEmpty(rec.Organization, rec.Company),
		CIK:          string(rec.CIK),
		Type:         firstNonEmpty(rec.DocumentType, rec.Form, rec.FormType),
		IssueDate:    firstNonEmpty(rec.IssueDate, rec.FilingDate),
	}

	if rec.Sections != nil {
		doc.Sections = make([]core.Section, 0, rec.Sections.Len())
		for pair := rec.Sections.Oldest(); pair != nil; pair = pair.Next() {
			var text string
			if err := json.Unmarshal(pair.Value, &text); err != nil {
				text = ""
			}
			doc.Sections = append(doc.Sections, core.Section{Name: pair.Key, Text: text})
		}
	}
	return doc, nil
}

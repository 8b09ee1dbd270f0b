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

package core

import (
	"fmt"
	"strings"
)

// ValidateDocument validates a Document at the collector boundary.
//
// Validation rules:
//   - ID, Organization, Type and IssueDate must not be empty
//   - ID must not contain '#'
//   - Section names must be unique
//
// NOT validated:
//   - Section text (empty sections chunk to zero windows)
//   - CIK (optional)
func ValidateDocument(doc *Document) error {
	if doc == nil {
		return fmt.Errorf("%w: document is nil", ErrInvalidDocument)
	}

	required := []struct {
		name  string
		value string
	}{
		{"document_id", doc.ID},
		{"organization", doc.Organization},
		{"document_type", doc.Type},
		{"issue_date", doc.IssueDate},
	}
	for _, f := range required {
		if f.value == "" {
			return fmt.Errorf("%w: %w: %s", ErrInvalidDocument, ErrMissingField, f.name)
		}
	}

	// The identifier is split on '#' from the left for the document id.
	if strings.Contains(doc.ID, "#") {
		return fmt.Errorf("%w: document_id %q contains '#'", ErrInvalidDocument, doc.ID)
	}

	seen := make(map[string]struct{}, len(doc.Sections))
	for _, s := range doc.Sections {
		if _, ok := seen[s.Name]; ok {
			return fmt.Errorf("%w: %w: %q", ErrInvalidDocument, ErrDuplicateSection, s.Name)
		}
		seen[s.Name] = struct{}{}
	}

	return nil
}

// Package document defines the linearized Document handed to the indexing
// stage, and the assembler that builds it page by page.
package document

import (
	"errors"
	"path/filepath"
	"strings"
)

// PageSeparator joins page fragments (and elements inside a page).
const PageSeparator = "\n\n"

// Document is the final linearized representation of one source file.
type Document struct {
	Content  string   `json:"content"`
	Metadata Metadata `json:"metadata"`
	Issues   []Issue  `json:"issues,omitempty"` // recovered page/image errors
}

// Metadata describes the source file.
type Metadata struct {
	Filename        string `json:"filename"`
	Extension       string `json:"extension"`
	SourcePageCount int    `json:"source_page_count"` // 0 for unpaged formats
}

// Issue is a recovered, non-fatal error recorded while building a document.
type Issue struct {
	Page    int    `json:"page,omitempty"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Empty reports whether the document carries no content.
func (d *Document) Empty() bool {
	return strings.TrimSpace(d.Content) == ""
}

// MetadataFor derives metadata from a filename. Extension is lower-cased
// and has no leading dot.
func MetadataFor(filename string, pages int) Metadata {
	return Metadata{
		Filename:        filename,
		Extension:       strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), "."),
		SourcePageCount: pages,
	}
}

// Assembler collects page fragments in page order and emits one Document.
// It is not safe for concurrent use; pages of a document are assembled sequentially.
type Assembler struct {
	meta      Metadata
	fragments []string
	issues    []Issue
}

func NewAssembler(meta Metadata) *Assembler {
	return &Assembler{meta: meta}
}

// AddPage appends the fragment of the next page. Empty fragments are kept so
// page numbering stays aligned, but they contribute no content.
func (a *Assembler) AddPage(fragment string) {
	a.fragments = append(a.fragments, fragment)
}

// Pages returns the number of pages added so far.
func (a *Assembler) Pages() int {
	return len(a.fragments)
}

// Record stores a recovered error as an Issue.
func (a *Assembler) Record(err error) {
	if err == nil {
		return
	}
	issue := Issue{Kind: "error", Message: err.Error()}
	var pe pageError
	if errors.As(err, &pe) {
		issue.Page = pe.PageNumber()
		issue.Kind = pe.Kind()
	}
	a.issues = append(a.issues, issue)
}

// Issues returns the recorded issues.
func (a *Assembler) Issues() []Issue {
	return a.issues
}

// Document joins all fragments and returns the assembled Document. An
// all-empty document is legal.
func (a *Assembler) Document() *Document {
	issues := make([]Issue, len(a.issues))
	copy(issues, a.issues)
	return &Document{
		Content:  Join(a.fragments),
		Metadata: a.meta,
		Issues:   issues,
	}
}

// Join concatenates non-empty fragments with a blank line between them.
func Join(fragments []string) string {
	var sb strings.Builder
	for _, f := range fragments {
		if f == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString(PageSeparator)
		}
		sb.WriteString(f)
	}
	return sb.String()
}

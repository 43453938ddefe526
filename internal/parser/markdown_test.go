package parser

import (
	"context"
	"strings"
	"testing"
)

func TestMarkdownParser_FlattensBlocks(t *testing.T) {
	input := `# Title

Intro text.

## Section A

Section A content
continues here.
`
	doc, err := (&MarkdownParser{}).Parse(context.Background(), strings.NewReader(input), "doc.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "Title\n\nIntro text.\n\nSection A\n\nSection A content\ncontinues here."
	if doc.Content != want {
		t.Errorf("expected %q, got %q", want, doc.Content)
	}
	if doc.Metadata.Extension != "md" {
		t.Errorf("expected extension md, got %q", doc.Metadata.Extension)
	}
}

func TestMarkdownParser_CodeBlock(t *testing.T) {
	input := "Intro.\n\n```go\nfunc main() {}\n```\n"
	doc, err := (&MarkdownParser{}).Parse(context.Background(), strings.NewReader(input), "code.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(doc.Content, "func main() {}") {
		t.Errorf("expected code block content, got %q", doc.Content)
	}
}

func TestMarkdownParser_Empty(t *testing.T) {
	doc, err := (&MarkdownParser{}).Parse(context.Background(), strings.NewReader(""), "empty.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !doc.Empty() {
		t.Errorf("expected empty document, got %q", doc.Content)
	}
}

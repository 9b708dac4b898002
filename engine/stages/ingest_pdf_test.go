package stages

import "testing"

func TestClassifyImages_SplitsByCaption(t *testing.T) {
	images := []ImageRef{
		{Caption: "Table 1: degradation rates"},
		{Caption: "Figure 2: SEM cross-section"},
		{Caption: "TABLE of anneal conditions"},
		{Caption: ""},
	}
	tables, figures := classifyImages(images)
	if tables != 2 {
		t.Errorf("expected 2 tables, got %d", tables)
	}
	if figures != 2 {
		t.Errorf("expected 2 figures, got %d", figures)
	}
}

func TestClassifyImages_Empty(t *testing.T) {
	tables, figures := classifyImages(nil)
	if tables != 0 || figures != 0 {
		t.Fatalf("expected zero counts, got tables=%d figures=%d", tables, figures)
	}
}

func TestTextDensity_AveragesCharsPerPage(t *testing.T) {
	pages := []PageMap{{Text: "abcd"}, {Text: "abcdefgh"}}
	got := textDensity(pages)
	if got != 6 {
		t.Fatalf("expected average of 6, got %v", got)
	}
}

func TestTextDensity_NoPages(t *testing.T) {
	if got := textDensity(nil); got != 0 {
		t.Fatalf("expected 0 with no pages, got %v", got)
	}
}

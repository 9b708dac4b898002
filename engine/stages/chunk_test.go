package stages

import "testing"

func TestSplitSentences(t *testing.T) {
	text := "First sentence. Second sentence! Third one?\nFourth on its own line."
	got := splitSentences(text)
	want := []string{"First sentence.", "Second sentence!", "Third one?", "Fourth on its own line."}
	if len(got) != len(want) {
		t.Fatalf("got %d sentences, want %d: %v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sentence %d: got %q, want %q", i, got[i], want[i])
		}
	}
}

func TestSplitSentences_Empty(t *testing.T) {
	if got := splitSentences(""); got != nil {
		t.Fatalf("expected nil for empty input, got %v", got)
	}
}

func TestChunkText_SingleChunkWhenShort(t *testing.T) {
	chunks := chunkText("One short sentence. Another one.", defaultChunkSize, defaultOverlap)
	if len(chunks) != 1 {
		t.Fatalf("expected a single chunk, got %d", len(chunks))
	}
	if chunks[0].Index != 0 {
		t.Fatalf("expected first chunk index 0, got %d", chunks[0].Index)
	}
}

func TestChunkText_Empty(t *testing.T) {
	if got := chunkText("", 512, 50); got != nil {
		t.Fatalf("expected nil for empty text, got %v", got)
	}
}

func TestChunkText_SplitsOnSize(t *testing.T) {
	// Build enough sentences that a small chunk size forces more than one window.
	text := ""
	for i := 0; i < 40; i++ {
		text += "The quick brown fox jumps over the lazy dog. "
	}
	chunks := chunkText(text, 20, 5)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks with a small chunk size, got %d", len(chunks))
	}
	for i, c := range chunks {
		if c.Index != i {
			t.Errorf("chunk %d has index %d", i, c.Index)
		}
		if c.Text == "" {
			t.Errorf("chunk %d is empty", i)
		}
	}
}

func TestChunkText_OverlapCarriesContext(t *testing.T) {
	text := ""
	for i := 0; i < 40; i++ {
		text += "Sentence number present in the corpus body text. "
	}
	chunks := chunkText(text, 20, 10)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	// With overlap > 0 consecutive chunks should share at least one sentence.
	firstWords := wordCount(chunks[0].Text)
	if firstWords == 0 {
		t.Fatal("first chunk unexpectedly empty")
	}
	total := 0
	for _, c := range chunks {
		total += wordCount(c.Text)
	}
	if total <= wordCount(text) {
		t.Fatalf("expected consecutive chunks to share sentences: chunk word total %d does not exceed document word count %d", total, wordCount(text))
	}
}

func TestWordCount(t *testing.T) {
	cases := map[string]int{
		"":               0,
		"one":            1,
		"one two three":  3,
		"  spaced   out ": 2,
	}
	for in, want := range cases {
		if got := wordCount(in); got != want {
			t.Errorf("wordCount(%q) = %d, want %d", in, got, want)
		}
	}
}

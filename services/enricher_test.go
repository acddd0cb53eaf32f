package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"rss-digest/config"
	"rss-digest/models"
)

// fakeChat answers with a canned reply per prompt fragment, or fails if the
// system prompt contains one of the failOn fragments.
type fakeChat struct {
	failOn []string
	calls  int
}

func (f *fakeChat) Complete(_ context.Context, system, user string) (string, error) {
	f.calls++
	for _, frag := range f.failOn {
		if strings.Contains(system, frag) {
			return "", errors.New("llm unavailable")
		}
	}
	switch {
	case strings.Contains(system, "translator"):
		return "translated: " + user, nil
	case strings.Contains(system, "Translate the following TL;DR"):
		return "中文 " + user, nil
	case strings.Contains(system, "summarizing"):
		return "💡 TL;DR: summary of input", nil
	case strings.Contains(system, "keywords"):
		return `["curcumin","inflammation","RCT"]`, nil
	}
	return user, nil
}

type fakeEmbed struct {
	err   error
	calls int
	dim   int
	seen  [][]string
}

func (f *fakeEmbed) Embed(_ context.Context, inputs []string) ([][]float32, error) {
	f.calls++
	f.seen = append(f.seen, inputs)
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(inputs))
	for i := range inputs {
		out[i] = make([]float32, f.dim)
		out[i][0] = float32(i + 1)
	}
	return out, nil
}

func testConfig() *config.Config {
	return &config.Config{
		TargetLanguage:    "zh-TW",
		KeywordsEnabled:   true,
		EmbeddingsEnabled: true,
		TwoStepSummary:    true,
		EmbeddingStrategy: "hybrid",
		SummaryMaxChars:   6000,
		FallbackMaxChars:  1500,
	}
}

func TestEnrichAllHappyPath(t *testing.T) {
	chat := &fakeChat{}
	embed := &fakeEmbed{dim: 4}
	e := NewEnricher(testConfig(), chat, embed, zap.NewNop())

	entries := []*models.Entry{
		{Source: "pubmed", PMID: "111", Title: "Study A", FullContent: "ABSTRACT findings A"},
		{Source: "pubmed", PMID: "222", Title: "Study B", FullContent: "ABSTRACT findings B"},
	}
	e.EnrichAll(context.Background(), entries)

	for _, entry := range entries {
		assert.Equal(t, "translated: "+entry.Title, entry.TitleTranslated)
		assert.Contains(t, entry.EnglishTLDR, "TL;DR")
		assert.Contains(t, entry.ChineseTLDR, "中文")
		assert.Equal(t, []string{"curcumin", "inflammation", "RCT"}, []string(entry.Keywords))
		require.NotNil(t, entry.Embedding)
		assert.Equal(t, "hybrid", entry.EmbeddingStrategy)
		assert.NotEmpty(t, entry.EmbeddingText)
	}

	// embeddings go out as one batched call, not per entry
	assert.Equal(t, 1, embed.calls)
	require.Len(t, embed.seen, 1)
	assert.Len(t, embed.seen[0], 2)
}

func TestTranslateTitleFallsBackToOriginal(t *testing.T) {
	chat := &fakeChat{failOn: []string{"translator"}}
	e := NewEnricher(testConfig(), chat, &fakeEmbed{dim: 4}, zap.NewNop())

	got := e.TranslateTitle(context.Background(), "Original Title")
	assert.Equal(t, "Original Title", got)
}

func TestSummaryFailureStillYieldsEntry(t *testing.T) {
	chat := &fakeChat{failOn: []string{"summarizing"}}
	e := NewEnricher(testConfig(), chat, &fakeEmbed{dim: 4}, zap.NewNop())

	entry := &models.Entry{Source: "pubmed", PMID: "111", Title: "Study", FullContent: "ABSTRACT long findings text"}
	e.EnrichAll(context.Background(), []*models.Entry{entry})

	// degraded fallback: preprocessed original text in both summary fields
	assert.Equal(t, "ABSTRACT long findings text", entry.EnglishTLDR)
	assert.Equal(t, "ABSTRACT long findings text", entry.ChineseTLDR)
	// entry is still complete enough for persistence
	assert.NotEmpty(t, entry.TitleTranslated)
	assert.NotNil(t, entry.Embedding)
}

func TestSummaryFallbackIsTruncated(t *testing.T) {
	cfg := testConfig()
	cfg.FallbackMaxChars = 20
	chat := &fakeChat{failOn: []string{"summarizing"}}
	e := NewEnricher(cfg, chat, &fakeEmbed{dim: 4}, zap.NewNop())

	long := "ABSTRACT " + strings.Repeat("x", 100)
	english, chinese := e.SummarizeTwoStep(context.Background(), long)
	assert.LessOrEqual(t, len(english), 20)
	assert.Equal(t, english, chinese)
}

func TestTranslationFailureKeepsEnglishSummary(t *testing.T) {
	chat := &fakeChat{failOn: []string{"Translate the following TL;DR"}}
	e := NewEnricher(testConfig(), chat, &fakeEmbed{dim: 4}, zap.NewNop())

	english, chinese := e.SummarizeTwoStep(context.Background(), "ABSTRACT text")
	assert.Contains(t, english, "TL;DR")
	assert.Equal(t, english, chinese)
}

func TestKeywordFailureYieldsEmptyList(t *testing.T) {
	chat := &fakeChat{failOn: []string{"keywords"}}
	e := NewEnricher(testConfig(), chat, &fakeEmbed{dim: 4}, zap.NewNop())

	got := e.ExtractKeywords(context.Background(), "title", "content")
	assert.Empty(t, got)
	assert.NotNil(t, got)
}

func TestBatchEmbeddingFailureNullsWholeBatch(t *testing.T) {
	chat := &fakeChat{}
	embed := &fakeEmbed{err: errors.New("embedding service down")}
	e := NewEnricher(testConfig(), chat, embed, zap.NewNop())

	entries := []*models.Entry{
		{Source: "pubmed", PMID: "1", Title: "A", FullContent: "ABSTRACT a"},
		{Source: "pubmed", PMID: "2", Title: "B", FullContent: "ABSTRACT b"},
		{Source: "pubmed", PMID: "3", Title: "C", FullContent: "ABSTRACT c"},
	}
	e.EnrichAll(context.Background(), entries)

	// all-or-nothing: never a mix of null and non-null embeddings
	for _, entry := range entries {
		assert.Nil(t, entry.Embedding)
	}
	assert.Equal(t, 1, embed.calls)
}

func TestSingleStepSummaryMode(t *testing.T) {
	cfg := testConfig()
	cfg.TwoStepSummary = false
	e := NewEnricher(cfg, &fakeChat{}, &fakeEmbed{dim: 4}, zap.NewNop())

	entry := &models.Entry{Source: "pubmed", PMID: "1", Title: "A", FullContent: "ABSTRACT a"}
	e.EnrichAll(context.Background(), []*models.Entry{entry})

	assert.Contains(t, entry.TLDR, "TL;DR")
	assert.Empty(t, entry.EnglishTLDR)
	assert.Empty(t, entry.ChineseTLDR)
}

func TestEmbeddingStrategies(t *testing.T) {
	entry := &models.Entry{
		Title:       "Study",
		EnglishTLDR: "💡 TL;DR: short summary",
		FullContent: "ABSTRACT original body",
	}

	tests := []struct {
		strategy string
		contains []string
		excludes []string
	}{
		{"hybrid", []string{"Study", "short summary", "original body"}, nil},
		{"summary-only", []string{"short summary"}, []string{"original body"}},
		{"original-only", []string{"original body"}, []string{"short summary"}},
	}

	for _, tt := range tests {
		t.Run(tt.strategy, func(t *testing.T) {
			cfg := testConfig()
			cfg.EmbeddingStrategy = tt.strategy
			e := NewEnricher(cfg, &fakeChat{}, &fakeEmbed{dim: 4}, zap.NewNop())

			text := e.embeddingText(entry)
			for _, want := range tt.contains {
				assert.Contains(t, text, want)
			}
			for _, not := range tt.excludes {
				assert.NotContains(t, text, not)
			}
		})
	}
}

func TestParseKeywords(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, parseKeywords(`["a","b"]`))
	assert.Equal(t, []string{"a", "b"}, parseKeywords("```json\n[\"a\",\"b\"]\n```"))
	assert.Equal(t, []string{"a", "b", "c"}, parseKeywords("a, b , c"))
	assert.Empty(t, parseKeywords("   "))
}

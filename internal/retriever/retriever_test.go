package retriever

import (
	"context"
	"math"
	"testing"

	"github.com/hyperjump/tansaku/internal/config"
	"github.com/hyperjump/tansaku/internal/encoder"
	"github.com/hyperjump/tansaku/internal/models"
	"github.com/hyperjump/tansaku/internal/vector"
)

var fixtureTexts = []struct {
	source string
	text   string
}{
	{"fever", "Viral fever usually resolves with rest and fluids."},
	{"fever", "Sponge baths can lower a high temperature safely."},
	{"burns", "Cool a minor burn under running water for ten minutes."},
	{"burns", "Never apply ice directly to burned skin."},
	{"b12", "Vitamin B12 supports nerve function and red blood cells."},
}

func newTestRetriever(t *testing.T) *Retriever {
	t.Helper()
	chunks := make([]models.Chunk, 0, len(fixtureTexts))
	perSource := map[string]int{}
	texts := make([]string, 0, len(fixtureTexts))
	for _, f := range fixtureTexts {
		c, err := models.NewChunk(f.source, f.text, len(f.text), perSource[f.source])
		if err != nil {
			t.Fatal(err)
		}
		perSource[f.source]++
		chunks = append(chunks, c)
		texts = append(texts, f.text)
	}

	enc := encoder.New(1000)
	if err := enc.Fit(texts); err != nil {
		t.Fatal(err)
	}
	ix, err := vector.NewFlatIndex(enc.Dimension())
	if err != nil {
		t.Fatal(err)
	}
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		v, err := enc.Transform(text)
		if err != nil {
			t.Fatal(err)
		}
		vectors[i] = v
	}
	if err := ix.Add(vectors); err != nil {
		t.Fatal(err)
	}

	info := models.SnapshotInfo{
		Encoder:    enc.Name(),
		Dimension:  enc.Dimension(),
		ChunkCount: len(chunks),
		IndexKind:  ix.Kind(),
	}
	r, err := New(enc, ix, chunks, info, config.Default().Gate)
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func TestSearchSelfSimilarity(t *testing.T) {
	r := newTestRetriever(t)
	results, err := r.Search(context.Background(), fixtureTexts[2].text, 3, 0)
	if err != nil {
		t.Fatalf("Search error: %v", err)
	}
	if len(results) == 0 {
		t.Fatal("no results")
	}
	top := results[0]
	if top.ChunkID != "burns_0" {
		t.Errorf("top result = %s, want burns_0", top.ChunkID)
	}
	if math.Abs(top.Score-1.0) > 1e-6 {
		t.Errorf("self-similarity score = %f, want ~1.0", top.Score)
	}
	if top.Rank != 1 {
		t.Errorf("top rank = %d", top.Rank)
	}
}

func TestSearchRanksAndOrdering(t *testing.T) {
	r := newTestRetriever(t)
	results, err := r.Search(context.Background(), "fever rest fluids", 5, 0)
	if err != nil {
		t.Fatal(err)
	}
	for i, res := range results {
		if res.Rank != i+1 {
			t.Errorf("result %d rank = %d", i, res.Rank)
		}
		if i > 0 && results[i-1].Score < res.Score {
			t.Errorf("scores not descending at %d", i)
		}
	}
}

// Filtering by min_score yields exactly the score-qualified prefix of
// the unfiltered list, re-ranked from 1.
func TestSearchMinScoreIsFilteredPrefix(t *testing.T) {
	r := newTestRetriever(t)
	ctx := context.Background()
	all, err := r.Search(ctx, "fever rest fluids", 5, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) < 2 {
		t.Fatalf("fixture too small: %d results", len(all))
	}
	threshold := all[1].Score + 1e-9
	filtered, err := r.Search(ctx, "fever rest fluids", 5, threshold)
	if err != nil {
		t.Fatal(err)
	}
	var want []models.ScoredChunk
	for _, res := range all {
		if res.Score >= threshold {
			want = append(want, res)
		}
	}
	if len(filtered) != len(want) {
		t.Fatalf("filtered has %d results, want %d", len(filtered), len(want))
	}
	for i := range filtered {
		if filtered[i].ChunkID != want[i].ChunkID {
			t.Errorf("result %d = %s, want %s", i, filtered[i].ChunkID, want[i].ChunkID)
		}
		if filtered[i].Rank != i+1 {
			t.Errorf("filtered rank %d = %d (ranks must not have gaps)", i, filtered[i].Rank)
		}
	}
}

func TestSearchNoResultsIsSuccess(t *testing.T) {
	r := newTestRetriever(t)
	results, err := r.Search(context.Background(), "fever", 5, 0.999)
	if err != nil {
		t.Fatalf("below-threshold search must not error: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected empty results, got %d", len(results))
	}
}

func TestSearchPrefixStability(t *testing.T) {
	r := newTestRetriever(t)
	ctx := context.Background()
	small, err := r.Search(ctx, "water for burns", 2, 0)
	if err != nil {
		t.Fatal(err)
	}
	large, err := r.Search(ctx, "water for burns", 5, 0)
	if err != nil {
		t.Fatal(err)
	}
	for i := range small {
		if small[i].ChunkID != large[i].ChunkID || small[i].Score != large[i].Score {
			t.Errorf("increasing k changed result %d", i)
		}
	}
}

func TestSearchDoesNotMutateChunks(t *testing.T) {
	r := newTestRetriever(t)
	results, err := r.Search(context.Background(), fixtureTexts[0].text, 1, 0)
	if err != nil {
		t.Fatal(err)
	}
	results[0].Text = "mutated"
	again, _ := r.GetChunkByID(results[0].ChunkID)
	if again.Text == "mutated" {
		t.Error("search results must be copies of stored chunks")
	}
}

func TestGetChunkByID(t *testing.T) {
	r := newTestRetriever(t)
	c, ok := r.GetChunkByID("b12_0")
	if !ok {
		t.Fatal("b12_0 not found")
	}
	if c.Source != "b12" || c.ChunkIndex != 0 {
		t.Errorf("chunk = %+v", c)
	}
	if _, ok := r.GetChunkByID("missing_9"); ok {
		t.Error("unknown chunk ID should report not found")
	}
}

func TestGetChunksBySource(t *testing.T) {
	r := newTestRetriever(t)
	chunks := r.GetChunksBySource("fever")
	if len(chunks) != 2 {
		t.Fatalf("got %d chunks", len(chunks))
	}
	for i, c := range chunks {
		if c.ChunkIndex != i {
			t.Errorf("chunk %d index = %d", i, c.ChunkIndex)
		}
	}
	if got := r.GetChunksBySource("absent"); len(got) != 0 {
		t.Errorf("unknown source should return no chunks, got %d", len(got))
	}
}

func TestGetAvailableSources(t *testing.T) {
	r := newTestRetriever(t)
	sources := r.GetAvailableSources()
	want := []string{"b12", "burns", "fever"}
	if len(sources) != len(want) {
		t.Fatalf("sources = %v", sources)
	}
	for i := range want {
		if sources[i] != want[i] {
			t.Errorf("sources[%d] = %s, want %s (sorted)", i, sources[i], want[i])
		}
	}
}

func TestNewRejectsMisalignedSnapshot(t *testing.T) {
	r := newTestRetriever(t)
	enc := r.enc
	ix := r.index
	chunks := r.chunks[:len(r.chunks)-1]
	if _, err := New(enc, ix, chunks, r.info, config.Default().Gate); err == nil {
		t.Error("chunk count != vector count must fail")
	}
}

func TestConcurrentSearch(t *testing.T) {
	r := newTestRetriever(t)
	ctx := context.Background()
	done := make(chan error, 8)
	for i := 0; i < 8; i++ {
		go func() {
			_, err := r.Search(ctx, "fever fluids burn water", 3, 0)
			done <- err
		}()
	}
	for i := 0; i < 8; i++ {
		if err := <-done; err != nil {
			t.Errorf("concurrent search error: %v", err)
		}
	}
}

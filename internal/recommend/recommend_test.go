package recommend

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"connsolver/internal/puzzle"
)

var pool = []string{
	"bass", "flounder", "salmon", "trout",
	"ant", "drill", "island", "opal",
	"bucket", "guest", "mailing", "shopping",
	"crab", "cod", "pike", "sole",
}

func viewOf(remaining []string, invalid ...puzzle.InvalidAttempt) puzzle.View {
	return puzzle.View{
		RemainingWords:  remaining,
		CorrectGroups:   map[puzzle.Color]puzzle.Group{},
		InvalidAttempts: invalid,
	}
}

func TestCombinationsCount(t *testing.T) {
	count := 0
	combinations(16, 4, func([]int) bool {
		count++
		return true
	})
	if count != 1820 {
		t.Errorf("C(16,4) visited %d subsets, want 1820", count)
	}
}

func TestCombinationsOrder(t *testing.T) {
	var got [][]int
	combinations(4, 2, func(idx []int) bool {
		got = append(got, append([]int(nil), idx...))
		return true
	})
	want := [][]int{{0, 1}, {0, 2}, {0, 3}, {1, 2}, {1, 3}, {2, 3}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("combinations(4,2) = %v, want %v", got, want)
	}
	combinations(3, 4, func([]int) bool {
		t.Error("k > n should not call fn")
		return true
	})
}

func TestSequentialFirstFour(t *testing.T) {
	rec, err := Sequential{}.Recommend(context.Background(), viewOf(pool))
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(rec.Group.Words, pool[:4]) {
		t.Errorf("group = %v, want %v", rec.Group.Words, pool[:4])
	}
	if rec.Recommender != NameSequential {
		t.Errorf("recommender = %q", rec.Recommender)
	}
}

func TestSequentialSkipsRejected(t *testing.T) {
	rejected := puzzle.InvalidAttempt{Words: []string{"trout", "salmon", "flounder", "bass"}, ErrorType: puzzle.NotCorrect}
	rec, err := Sequential{}.Recommend(context.Background(), viewOf(pool, rejected))
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"bass", "flounder", "salmon", "ant"}
	if !reflect.DeepEqual(rec.Group.Words, want) {
		t.Errorf("group = %v, want %v", rec.Group.Words, want)
	}
}

func TestSequentialExhausted(t *testing.T) {
	last := pool[:4]
	_, err := Sequential{}.Recommend(context.Background(), viewOf(last, puzzle.InvalidAttempt{Words: last}))
	if !errors.Is(err, ErrExhausted) {
		t.Errorf("error = %v, want ErrExhausted", err)
	}
}

func TestResolveWords(t *testing.T) {
	got, ok := resolveWords([]string{" BASS", "Trout", "cod", "sole "}, pool)
	if !ok || !reflect.DeepEqual(got, []string{"bass", "trout", "cod", "sole"}) {
		t.Errorf("resolveWords = %v, %v", got, ok)
	}
	if _, ok := resolveWords([]string{"whale"}, pool); ok {
		t.Error("unknown word resolved")
	}
}

// stubModel answers every prompt with reply, recording the prompts.
type stubModel struct {
	reply   string
	err     error
	prompts []string
}

func (s *stubModel) Complete(_ context.Context, _, userPrompt string) (string, error) {
	s.prompts = append(s.prompts, userPrompt)
	return s.reply, s.err
}

func TestLLMRecommend(t *testing.T) {
	model := &stubModel{reply: "Sure! {\"words\": [\"Bass\", \"Pike\", \"Cod\", \"Sole\"], \"connection\": \"fish\"} Good luck."}
	rejected := puzzle.InvalidAttempt{Words: []string{"ant", "drill", "island", "opal"}, ErrorType: puzzle.OneAway}
	rec, err := (&LLM{Model: model}).Recommend(context.Background(), viewOf(pool, rejected))
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if !reflect.DeepEqual(rec.Group.Words, []string{"bass", "pike", "cod", "sole"}) || rec.Group.Reason != "fish" {
		t.Errorf("recommendation = %+v", rec)
	}
	if rec.Recommender != NameLLM {
		t.Errorf("recommender = %q", rec.Recommender)
	}
	if !strings.Contains(model.prompts[0], "ant, drill, island, opal [one_away]") {
		t.Errorf("prompt does not list the rejected group:\n%s", model.prompts[0])
	}
}

func TestLLMRejectsBadAnswers(t *testing.T) {
	rejected := puzzle.InvalidAttempt{Words: []string{"bass", "pike", "cod", "sole"}, ErrorType: puzzle.NotCorrect}
	tests := []struct {
		name  string
		reply string
	}{
		{"no json", "I think bass, pike, cod and sole."},
		{"three words", `{"words": ["bass", "pike", "cod"], "connection": "fish"}`},
		{"unknown word", `{"words": ["bass", "pike", "cod", "whale"], "connection": "sea"}`},
		{"already rejected", `{"words": ["sole", "cod", "pike", "bass"], "connection": "fish"}`},
		{"repeated word", `{"words": ["bass", "bass", "cod", "pike"], "connection": "fish"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := (&LLM{Model: &stubModel{reply: tt.reply}}).Recommend(context.Background(), viewOf(pool, rejected))
			if err == nil {
				t.Error("bad answer accepted")
			}
		})
	}
}

func TestOneAwayNotApplicable(t *testing.T) {
	o := &OneAway{Model: &stubModel{}}
	views := []puzzle.View{
		viewOf(pool),
		viewOf(pool, puzzle.InvalidAttempt{Words: pool[:4], ErrorType: puzzle.NotCorrect}),
		viewOf(pool[4:], puzzle.InvalidAttempt{Words: pool[:4], ErrorType: puzzle.OneAway}),
	}
	for i, v := range views {
		if _, err := o.Recommend(context.Background(), v); !errors.Is(err, ErrNotApplicable) {
			t.Errorf("view %d error = %v, want ErrNotApplicable", i, err)
		}
	}
}

func TestOneAwayRepair(t *testing.T) {
	attempt := puzzle.InvalidAttempt{Words: []string{"bass", "flounder", "salmon", "ant"}, Reason: "fish", ErrorType: puzzle.OneAway}
	model := &stubModel{reply: `{"words": ["bass", "flounder", "salmon", "trout"], "connection": "fish"}`}
	rec, err := (&OneAway{Model: model}).Recommend(context.Background(), viewOf(pool, attempt))
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if rec.Recommender != NameOneAway {
		t.Errorf("recommender = %q", rec.Recommender)
	}
	if strings.Contains(model.prompts[0], "Other remaining words: bass") {
		t.Errorf("prompt lists the attempt's words as other words:\n%s", model.prompts[0])
	}

	model.reply = `{"words": ["bass", "flounder", "cod", "trout"], "connection": "fish"}`
	if _, err := (&OneAway{Model: model}).Recommend(context.Background(), viewOf(pool, attempt)); err == nil {
		t.Error("repair that swaps two words was accepted")
	}
}

// stubBroker returns a fixed result.
type stubBroker struct {
	rec   puzzle.Recommendation
	err   error
	calls int
}

func (s *stubBroker) Recommend(context.Context, puzzle.View) (puzzle.Recommendation, error) {
	s.calls++
	return s.rec, s.err
}

func TestPlannerRouting(t *testing.T) {
	primary := &stubBroker{rec: puzzle.Recommendation{Recommender: "primary"}}

	analyzer := &stubBroker{rec: puzzle.Recommendation{Recommender: "analyzer"}}
	p := &Planner{Primary: primary, OneAway: analyzer}
	if rec, _ := p.Recommend(context.Background(), viewOf(pool)); rec.Recommender != "analyzer" {
		t.Errorf("applicable analyzer not used: %q", rec.Recommender)
	}

	analyzer.err = ErrNotApplicable
	if rec, _ := p.Recommend(context.Background(), viewOf(pool)); rec.Recommender != "primary" {
		t.Errorf("not applicable analyzer did not fall back: %q", rec.Recommender)
	}

	analyzer.err = errors.New("model down")
	if rec, err := p.Recommend(context.Background(), viewOf(pool)); err != nil || rec.Recommender != "primary" {
		t.Errorf("failing analyzer did not fall back: %q, %v", rec.Recommender, err)
	}
	if primary.calls != 2 {
		t.Errorf("primary called %d times, want 2", primary.calls)
	}
}

func TestBuild(t *testing.T) {
	if b, err := Build("", nil); err != nil || b == nil {
		t.Errorf("Build(\"\") = %v, %v", b, err)
	}
	if _, err := Build(NameLLM, nil); !errors.Is(err, ErrMissingAPIKey) {
		t.Errorf("Build(llm, nil) error = %v, want ErrMissingAPIKey", err)
	}
	if _, err := Build("oracle", nil); err == nil {
		t.Error("Build accepted an unknown engine")
	}
	b, err := Build(NameEmbedding, &Client{})
	if err != nil {
		t.Fatal(err)
	}
	if p, ok := b.(*Planner); !ok {
		t.Errorf("Build(embedding) = %T, want *Planner", b)
	} else if _, ok := p.Primary.(*Embedding); !ok {
		t.Errorf("embedding planner primary = %T", p.Primary)
	}
}

package postprocessors

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/aguiargov/licita/internal/core/domain"
)

// stage is a scripted processor that records what it was given.
type stage struct {
	name  string
	emit  func(in []domain.Chunk) []domain.Chunk
	err   error
	calls int
	got   []domain.Chunk
}

func (s *stage) Name() string { return s.name }

func (s *stage) Process(_ context.Context, _ *domain.Document, in []domain.Chunk) ([]domain.Chunk, error) {
	s.calls++
	s.got = in
	if s.err != nil {
		return nil, s.err
	}
	if s.emit == nil {
		return in, nil
	}
	return s.emit(in), nil
}

func emitTexts(texts ...string) func([]domain.Chunk) []domain.Chunk {
	return func([]domain.Chunk) []domain.Chunk {
		out := make([]domain.Chunk, len(texts))
		for i, t := range texts {
			out[i] = domain.Chunk{Content: t, Position: i}
		}
		return out
	}
}

func contents(chunks []domain.Chunk) []string {
	out := make([]string, len(chunks))
	for i, c := range chunks {
		out[i] = c.Content
	}
	return out
}

func TestPipeline_NilDocument(t *testing.T) {
	_, err := NewPipeline().Process(context.Background(), nil)
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestPipeline_NoStages(t *testing.T) {
	chunks, err := NewPipeline().Process(context.Background(), &domain.Document{Content: "Art. 1º"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if chunks != nil {
		t.Errorf("expected no chunks, got %v", chunks)
	}
}

func TestPipeline_ChainsStagesInOrder(t *testing.T) {
	split := &stage{name: "split", emit: emitTexts("inciso I", "inciso II")}
	tag := &stage{name: "mark", emit: func(in []domain.Chunk) []domain.Chunk {
		for i := range in {
			in[i].Source = "lei.pdf"
		}
		return in
	}}
	p := NewPipeline(split, tag)

	chunks, err := p.Process(context.Background(), &domain.Document{Content: "x"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if split.got != nil {
		t.Errorf("first stage should receive nil chunks, got %v", split.got)
	}
	if !reflect.DeepEqual(contents(tag.got), []string{"inciso I", "inciso II"}) {
		t.Errorf("second stage got %v", contents(tag.got))
	}
	for _, c := range chunks {
		if c.Source != "lei.pdf" {
			t.Errorf("chunk %q not tagged", c.Content)
		}
	}
	if !reflect.DeepEqual(p.Names(), []string{"split", "mark"}) {
		t.Errorf("unexpected names %v", p.Names())
	}
}

func TestPipeline_StopsWhenNothingLeft(t *testing.T) {
	split := &stage{name: "split", emit: emitTexts("12")}
	drop := &stage{name: "drop", emit: func([]domain.Chunk) []domain.Chunk { return nil }}
	after := &stage{name: "after"}

	chunks, err := NewPipeline(split, drop, after).Process(context.Background(), &domain.Document{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 0 {
		t.Errorf("expected no chunks, got %v", contents(chunks))
	}
	if after.calls != 0 {
		t.Errorf("stage after an empty result ran %d time(s)", after.calls)
	}
}

func TestPipeline_StageErrorNamesStage(t *testing.T) {
	boom := errors.New("pdf sem texto")
	failing := &stage{name: "filter", err: boom}
	after := &stage{name: "source_tag"}

	_, err := NewPipeline(&stage{name: "chunker", emit: emitTexts("a")}, failing, after).
		Process(context.Background(), &domain.Document{})
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped stage error, got %v", err)
	}
	if err.Error() != "filter: pdf sem texto" {
		t.Errorf("unexpected message %q", err.Error())
	}
	if after.calls != 0 {
		t.Error("stages after a failure must not run")
	}
}

func TestPipeline_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	first := &stage{name: "chunker"}

	_, err := NewPipeline(first).Process(ctx, &domain.Document{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if first.calls != 0 {
		t.Error("no stage should run on a cancelled context")
	}
}

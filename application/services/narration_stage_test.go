package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/panjf2000/ants/v2"

	"generate-video-pipeline/domain"
	"generate-video-pipeline/infrastructure/adapters"
)

// stubSynthesizer returns the chunk text itself as audio bytes with a
// duration proportional to its length, sleeping longer for earlier chunks so
// completion order differs from text order.
type stubSynthesizer struct {
	maxInput     int
	reverseDelay bool

	mu        sync.Mutex
	calls     int
	failures  map[string]int
	failKinds map[string]error
}

func (s *stubSynthesizer) MaxInputLength() int {
	return s.maxInput
}

func (s *stubSynthesizer) Synthesize(ctx context.Context, text string) ([]byte, time.Duration, error) {
	s.mu.Lock()
	s.calls++
	if s.failKinds != nil {
		if err, ok := s.failKinds[text]; ok {
			s.mu.Unlock()
			return nil, 0, err
		}
	}
	if s.failures != nil && s.failures[text] > 0 {
		s.failures[text]--
		s.mu.Unlock()
		return nil, 0, domain.Transient(errors.New("tts throttled"))
	}
	s.mu.Unlock()

	if s.reverseDelay {
		// Earlier (alphabetically smaller) chunks finish last.
		time.Sleep(time.Duration(30-len(text)%30) * time.Millisecond)
	}
	return []byte(text), time.Duration(len(text)) * 10 * time.Millisecond, nil
}

func newTestPool(t *testing.T) *ants.Pool {
	t.Helper()
	pool, err := ants.NewPool(4)
	if err != nil {
		t.Fatal("Failed to create worker pool:", err)
	}
	t.Cleanup(pool.Release)
	return pool
}

func TestNarrationStage_SingleChunk(t *testing.T) {
	logger := adapters.NewZerologWrapper()
	synth := &stubSynthesizer{maxInput: 0}

	stage := NewNarrationStage(logger, synth, newTestPool(t), testRetryPolicy())

	workDir := t.TempDir()
	story := domain.StoryArtifact{Text: "One short story."}

	audio, err := stage.Synthesize(context.Background(), story, workDir)
	if err != nil {
		t.Fatal("expected success, got:", err)
	}

	saved, err := os.ReadFile(filepath.Join(workDir, NarrationFileName))
	if err != nil {
		t.Fatal("narration file should be persisted:", err)
	}
	if string(saved) != story.Text {
		t.Errorf("unexpected audio content: %q", string(saved))
	}
	if audio.Duration != time.Duration(len(story.Text))*10*time.Millisecond {
		t.Errorf("unexpected duration: %v", audio.Duration)
	}
	if synth.calls != 1 {
		t.Errorf("expected 1 synthesis call, got %d", synth.calls)
	}
}

func TestNarrationStage_ChunksKeepTextOrderUnderConcurrency(t *testing.T) {
	logger := adapters.NewZerologWrapper()
	synth := &stubSynthesizer{maxInput: 40, reverseDelay: true}

	stage := NewNarrationStage(logger, synth, newTestPool(t), testRetryPolicy())

	story := domain.StoryArtifact{Text: "Alpha sentence opens the story. " +
		"Bravo sentence carries the middle part. " +
		"Charlie sentence closes everything down. " +
		"Delta sentence is the final word."}

	workDir := t.TempDir()
	audio, err := stage.Synthesize(context.Background(), story, workDir)
	if err != nil {
		t.Fatal("expected success, got:", err)
	}
	if synth.calls < 2 {
		t.Fatalf("expected chunked synthesis, got %d calls", synth.calls)
	}

	saved, err := os.ReadFile(audio.FileName)
	if err != nil {
		t.Fatal(err)
	}
	joined := string(saved)

	// Concatenation must follow text order regardless of completion order.
	for _, marker := range []string{"Alpha", "Bravo", "Charlie", "Delta"} {
		if !strings.Contains(joined, marker) {
			t.Fatalf("missing chunk %q in output", marker)
		}
	}
	if !(strings.Index(joined, "Alpha") < strings.Index(joined, "Bravo") &&
		strings.Index(joined, "Bravo") < strings.Index(joined, "Charlie") &&
		strings.Index(joined, "Charlie") < strings.Index(joined, "Delta")) {
		t.Errorf("chunks out of order: %q", joined)
	}

	if audio.Duration != time.Duration(len(saved))*10*time.Millisecond {
		t.Errorf("total duration %v should be the sum of chunk durations", audio.Duration)
	}
}

func TestNarrationStage_TransientChunkFailureIsRetriedInPlace(t *testing.T) {
	logger := adapters.NewZerologWrapper()
	synth := &stubSynthesizer{
		maxInput: 40,
		failures: map[string]int{},
	}

	stage := NewNarrationStage(logger, synth, newTestPool(t), testRetryPolicy()).(*narrationStage)

	story := domain.StoryArtifact{Text: "Alpha sentence opens the story. " +
		"Bravo sentence carries the middle part. " +
		"Charlie sentence closes everything down."}

	chunks := stage.splitIntoChunks(story.Text, synth.maxInput)
	if len(chunks) < 2 {
		t.Fatal("test requires multiple chunks")
	}
	synth.failures[chunks[1]] = 1

	audio, err := stage.Synthesize(context.Background(), story, t.TempDir())
	if err != nil {
		t.Fatal("one transient chunk failure must not fail the stage:", err)
	}
	if audio.Duration == 0 {
		t.Error("duration should be recorded")
	}
	if synth.calls != len(chunks)+1 {
		t.Errorf("expected %d calls (one retry), got %d", len(chunks)+1, synth.calls)
	}
}

func TestNarrationStage_PermanentChunkFailureFailsStage(t *testing.T) {
	logger := adapters.NewZerologWrapper()
	synth := &stubSynthesizer{
		maxInput:  40,
		failKinds: map[string]error{},
	}

	stage := NewNarrationStage(logger, synth, newTestPool(t), testRetryPolicy()).(*narrationStage)

	story := domain.StoryArtifact{Text: "Alpha sentence opens the story. " +
		"Bravo sentence carries the middle part. " +
		"Charlie sentence closes everything down."}

	chunks := stage.splitIntoChunks(story.Text, synth.maxInput)
	synth.failKinds[chunks[1]] = domain.Permanent(errors.New("bad credentials"))

	_, err := stage.Synthesize(context.Background(), story, t.TempDir())
	if err == nil {
		t.Fatal("expected an error")
	}
	if domain.KindOf(err) != domain.KindPermanent {
		t.Errorf("expected Permanent, got %s", domain.KindOf(err))
	}
}

func TestSplitIntoChunks(t *testing.T) {
	logger := adapters.NewZerologWrapper()
	stage := NewNarrationStage(logger, &stubSynthesizer{}, newTestPool(t), testRetryPolicy()).(*narrationStage)

	t.Run("short text stays whole", func(t *testing.T) {
		chunks := stage.splitIntoChunks("Short.", 100)
		if len(chunks) != 1 || chunks[0] != "Short." {
			t.Errorf("unexpected chunks: %v", chunks)
		}
	})

	t.Run("sentences packed under the limit", func(t *testing.T) {
		text := "One two three four. Five six seven eight. Nine ten eleven twelve."
		chunks := stage.splitIntoChunks(text, 45)
		if len(chunks) < 2 {
			t.Fatalf("expected multiple chunks, got %v", chunks)
		}
		for _, chunk := range chunks {
			if len([]rune(chunk)) > 45 {
				t.Errorf("chunk over limit: %q", chunk)
			}
		}
		if strings.Join(strings.Fields(strings.Join(chunks, " ")), " ") != strings.Join(strings.Fields(text), " ") {
			t.Errorf("chunking lost or reordered text: %v", chunks)
		}
	})

	t.Run("oversized sentence is hard split", func(t *testing.T) {
		text := strings.Repeat("x", 120)
		chunks := stage.splitIntoChunks(text, 50)
		if len(chunks) != 3 {
			t.Fatalf("expected 3 chunks, got %d", len(chunks))
		}
		for _, chunk := range chunks {
			if len([]rune(chunk)) > 50 {
				t.Errorf("chunk over limit: %q", chunk)
			}
		}
	})
}

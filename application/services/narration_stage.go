package services

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"generate-video-pipeline/application/ports/inbound"
	"generate-video-pipeline/application/ports/outbound"
	"generate-video-pipeline/application/retry"
	"generate-video-pipeline/domain"
)

const NarrationFileName = "narration.mp3"

type synthesizedChunk struct {
	audio    []byte
	duration time.Duration
}

type narrationStage struct {
	logger         outbound.LoggerPort
	synthesizer    outbound.SpeechSynthesizerPort
	workerPool     outbound.TaskDispatcher
	retryPolicy    retry.Policy
	sentenceRegexp *regexp.Regexp
}

func NewNarrationStage(logger outbound.LoggerPort, synthesizer outbound.SpeechSynthesizerPort,
	workerPool outbound.TaskDispatcher, retryPolicy retry.Policy) inbound.NarrationStagePort {
	return &narrationStage{
		logger:         logger,
		synthesizer:    synthesizer,
		workerPool:     workerPool,
		retryPolicy:    retryPolicy,
		sentenceRegexp: regexp.MustCompile(`[^.!?]+[.!?]*\s*`),
	}
}

func (s *narrationStage) Synthesize(ctx context.Context, story domain.StoryArtifact, workDir string) (domain.AudioArtifact, error) {
	chunks := s.splitIntoChunks(story.Text, s.synthesizer.MaxInputLength())

	s.logger.InfoWithFields("Synthesizing narration", map[string]interface{}{
		"chunks": len(chunks),
		"chars":  len(story.Text),
	})

	results, err := s.synthesizeChunks(ctx, chunks)
	if err != nil {
		return domain.AudioArtifact{}, err
	}

	var audio bytes.Buffer
	var total time.Duration
	for _, chunk := range results {
		audio.Write(chunk.audio)
		total += chunk.duration
	}

	audioFile := filepath.Join(workDir, NarrationFileName)
	if err := os.WriteFile(audioFile, audio.Bytes(), 0644); err != nil {
		s.logger.Error(err, "Failed to save the narration audio")
		return domain.AudioArtifact{}, domain.Permanent(err)
	}

	return domain.AudioArtifact{
		FileName: audioFile,
		Duration: total,
	}, nil
}

// synthesizeChunks runs every chunk through its own retry wrap, concurrently
// on the worker pool. Result order follows chunk order regardless of
// completion order; the first failure (lowest chunk index) cancels the rest.
func (s *narrationStage) synthesizeChunks(ctx context.Context, chunks []string) ([]synthesizedChunk, error) {
	results := make([]synthesizedChunk, len(chunks))
	errs := make([]error, len(chunks))

	newCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	for i, chunk := range chunks {
		i, chunk := i, chunk
		wg.Add(1)
		err := s.workerPool.Submit(func() {
			defer wg.Done()
			result, err := retry.Do(newCtx, s.retryPolicy, s.logger, func(ctx context.Context) (synthesizedChunk, error) {
				audio, duration, err := s.synthesizer.Synthesize(ctx, chunk)
				if err != nil {
					return synthesizedChunk{}, err
				}
				return synthesizedChunk{audio: audio, duration: duration}, nil
			})
			if err != nil {
				errs[i] = err
				cancel()
				return
			}
			results[i] = result
		})
		if err != nil {
			wg.Done()
			errs[i] = domain.Permanent(err)
			cancel()
		}
	}
	wg.Wait()

	for i, err := range errs {
		if err == nil {
			continue
		}
		// Cancellations triggered by an earlier chunk's failure are noise;
		// surface the real error of the lowest failed index instead.
		if domain.KindOf(err) == domain.KindCancelled && ctx.Err() == nil {
			continue
		}
		s.logger.ErrorWithFields(err, "Chunk synthesis failed", map[string]interface{}{
			"chunk": i,
		})
		return nil, err
	}
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	return results, nil
}

// splitIntoChunks packs whole sentences into chunks no longer than maxChars
// runes, preserving original text order. A single sentence over the limit is
// hard-split. maxChars <= 0 means the synthesizer accepts unbounded input.
func (s *narrationStage) splitIntoChunks(text string, maxChars int) []string {
	if maxChars <= 0 || len([]rune(text)) <= maxChars {
		return []string{text}
	}

	sentences := s.sentenceRegexp.FindAllString(text, -1)
	if len(sentences) == 0 {
		sentences = []string{text}
	}

	var chunks []string
	var current strings.Builder
	for _, sentence := range sentences {
		for _, part := range hardSplit(sentence, maxChars) {
			if current.Len() > 0 && len([]rune(current.String()))+len([]rune(part)) > maxChars {
				chunks = append(chunks, strings.TrimSpace(current.String()))
				current.Reset()
			}
			current.WriteString(part)
		}
	}
	if trimmed := strings.TrimSpace(current.String()); trimmed != "" {
		chunks = append(chunks, trimmed)
	}

	return chunks
}

func hardSplit(text string, maxChars int) []string {
	runes := []rune(text)
	if len(runes) <= maxChars {
		return []string{text}
	}

	var parts []string
	for start := 0; start < len(runes); start += maxChars {
		end := start + maxChars
		if end > len(runes) {
			end = len(runes)
		}
		parts = append(parts, string(runes[start:end]))
	}
	return parts
}

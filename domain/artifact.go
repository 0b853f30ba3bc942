package domain

import (
	"fmt"
	"time"
)

type Stage string

const (
	StoryStage     Stage = "StoryStage"
	ImageStage     Stage = "ImageStage"
	NarrationStage Stage = "NarrationStage"
	AssemblyStage  Stage = "AssemblyStage"
)

type Resolution struct {
	Width  int
	Height int
}

func (r Resolution) String() string {
	return fmt.Sprintf("%dx%d", r.Width, r.Height)
}

type StoryArtifact struct {
	Topic       string
	Text        string
	FileName    string
	GeneratedAt time.Time
}

type ImageArtifact struct {
	FileName string
	Prompt   string
}

type AudioArtifact struct {
	FileName string
	Duration time.Duration
}

type VideoArtifact struct {
	FileName   string
	Resolution Resolution
	Duration   time.Duration
	// PublishedKey is set when the video was additionally uploaded to the
	// configured object store after local placement.
	PublishedKey string
}

type StageFailure struct {
	Stage   Stage
	Kind    ErrorKind
	Message string
}

func (f StageFailure) String() string {
	return fmt.Sprintf("%s failed with %s: %s", f.Stage, f.Kind, f.Message)
}

// RunResult is the tagged outcome of one pipeline run: either a finished
// video or the first stage failure, never both.
type RunResult struct {
	Video   *VideoArtifact
	Failure *StageFailure
}

func Success(video VideoArtifact) RunResult {
	return RunResult{Video: &video}
}

func Failed(stage Stage, err error) RunResult {
	return RunResult{Failure: &StageFailure{
		Stage:   stage,
		Kind:    KindOf(err),
		Message: err.Error(),
	}}
}

func (r RunResult) Succeeded() bool {
	return r.Video != nil
}

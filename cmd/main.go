package main

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/panjf2000/ants/v2"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"generate-video-pipeline/application/ports/outbound"
	"generate-video-pipeline/application/retry"
	"generate-video-pipeline/application/services"
	"generate-video-pipeline/config"
	"generate-video-pipeline/infrastructure/adapters"
)

type cliOptions struct {
	Topic             string
	OllamaEndpoint    string
	OllamaModel       string
	DalleKey          string
	AzureVoice        string
	AzureRegion       string
	OutputDir         string
	WorkDir           string
	Resolution        string
	MaxVideoLength    time.Duration
	MaxRetries        int
	RetryDelay        time.Duration
	KeepIntermediates bool
}

var opts cliOptions

func main() {
	rootCmd := &cobra.Command{
		Use:   "generate-video-pipeline",
		Short: "Generate one narrated story video per invocation",
		Long: "Runs the full story-to-video pipeline: story text generation, image generation,\n" +
			"speech synthesis and video assembly, producing one finished video in the output directory.",
		SilenceUsage: true,
		RunE:         runPipeline,
	}

	flags := rootCmd.Flags()
	flags.StringVarP(&opts.Topic, "topic", "t", "", "story topic (empty lets the model pick one)")
	flags.StringVar(&opts.OllamaEndpoint, "ollama-endpoint", "", "Ollama API endpoint (overrides OLLAMA_ENDPOINT)")
	flags.StringVar(&opts.OllamaModel, "ollama-model", "", "Ollama model (overrides OLLAMA_MODEL)")
	flags.StringVar(&opts.DalleKey, "dalle-key", "", "DALL-E API key (overrides DALLE_API_KEY)")
	flags.StringVar(&opts.AzureVoice, "voice", "", "Azure TTS voice (overrides AZURE_TTS_VOICE)")
	flags.StringVar(&opts.AzureRegion, "region", "", "Azure TTS region (overrides AZURE_TTS_REGION)")
	flags.StringVarP(&opts.OutputDir, "output-dir", "o", "", "output directory (overrides OUTPUT_DIR)")
	flags.StringVar(&opts.WorkDir, "work-dir", "", "working directory base (overrides WORK_DIR)")
	flags.StringVar(&opts.Resolution, "resolution", "", "output resolution WxH (overrides OUTPUT_RESOLUTION)")
	flags.DurationVar(&opts.MaxVideoLength, "max-video-length", 0, "maximum video length (overrides MAX_VIDEO_LENGTH)")
	flags.IntVar(&opts.MaxRetries, "max-retries", 0, "retry attempts per stage call (overrides MAX_RETRIES)")
	flags.DurationVar(&opts.RetryDelay, "retry-delay", 0, "base retry backoff delay (overrides RETRY_DELAY)")
	flags.BoolVar(&opts.KeepIntermediates, "keep-intermediates", false, "keep the per-run working directory")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runPipeline(cmd *cobra.Command, args []string) error {
	// .env is local-dev convenience only; a missing file is fine.
	_ = godotenv.Load()

	applyEnvOverrides(cmd)

	pipelineConfig, err := config.GetPipelineConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to get pipeline config")
	}
	applyPipelineOverrides(cmd, pipelineConfig)

	ollamaConfig, err := config.GetOllamaConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to get ollama config")
	}

	dalleConfig, err := config.GetDalleConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to get dalle config")
	}

	azureSpeechConfig, err := config.GetAzureSpeechConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to get azure speech config")
	}

	s3Config, err := config.GetS3Config()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to get s3 config")
	}

	logger := adapters.NewZerologWrapper()

	panicHandler := func(p interface{}) {
		logger.Error(fmt.Errorf("%v", p), "Panic in worker pool")
	}
	workerPool, err := ants.NewPool(8, ants.WithPanicHandler(panicHandler))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create worker pool")
	}
	defer workerPool.Release()

	retryPolicy := retry.Policy{
		MaxAttempts: pipelineConfig.MaxRetries,
		BaseDelay:   pipelineConfig.RetryDelay,
		MaxDelay:    pipelineConfig.RetryMaxDelay,
	}

	contentFetcher := adapters.NewContentFetcher(logger)

	textGenerator := adapters.NewOllamaTextGenerator(contentFetcher, ollamaConfig, logger)
	imageGenerator := adapters.NewDalleImageGenerator(contentFetcher, dalleConfig, logger)
	speechSynthesizer := adapters.NewAzureSpeechSynthesizer(contentFetcher, azureSpeechConfig, logger)
	videoEncoder := adapters.NewFFMPEGVideoEncoder(logger)

	var videoPublisher outbound.VideoPublisherPort
	if s3Config != nil {
		videoPublisher, err = adapters.NewS3VideoPublisher(logger, s3Config)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create s3 video publisher")
		}
	}

	storyStage := services.NewStoryStage(logger, textGenerator, pipelineConfig, retryPolicy)
	imageStage := services.NewImageStage(logger, imageGenerator, pipelineConfig, retryPolicy)
	narrationStage := services.NewNarrationStage(logger, speechSynthesizer, workerPool, retryPolicy)
	assemblyStage := services.NewAssemblyStage(logger, videoEncoder, pipelineConfig, retryPolicy)

	orchestrator := services.NewPipelineOrchestrator(logger, pipelineConfig,
		storyStage, imageStage, narrationStage, assemblyStage, videoPublisher)

	result := orchestrator.Run(cmd.Context(), opts.Topic)
	if !result.Succeeded() {
		return fmt.Errorf("%s", result.Failure)
	}

	fmt.Println(result.Video.FileName)
	return nil
}

// applyEnvOverrides maps set collaborator flags onto their environment
// variables before config resolution, so precedence is flags over env over
// built-in defaults.
func applyEnvOverrides(cmd *cobra.Command) {
	overrides := map[string]string{
		"ollama-endpoint": "OLLAMA_ENDPOINT",
		"ollama-model":    "OLLAMA_MODEL",
		"dalle-key":       "DALLE_API_KEY",
		"voice":           "AZURE_TTS_VOICE",
		"region":          "AZURE_TTS_REGION",
		"output-dir":      "OUTPUT_DIR",
		"work-dir":        "WORK_DIR",
		"resolution":      "OUTPUT_RESOLUTION",
	}
	for flagName, envName := range overrides {
		if cmd.Flags().Changed(flagName) {
			value, _ := cmd.Flags().GetString(flagName)
			_ = os.Setenv(envName, value)
		}
	}
}

func applyPipelineOverrides(cmd *cobra.Command, pipelineConfig *config.PipelineConfig) {
	if cmd.Flags().Changed("max-video-length") {
		pipelineConfig.MaxVideoLength = opts.MaxVideoLength
	}
	if cmd.Flags().Changed("max-retries") {
		pipelineConfig.MaxRetries = opts.MaxRetries
	}
	if cmd.Flags().Changed("retry-delay") {
		pipelineConfig.RetryDelay = opts.RetryDelay
	}
	if cmd.Flags().Changed("keep-intermediates") {
		pipelineConfig.KeepIntermediates = opts.KeepIntermediates
	}
}

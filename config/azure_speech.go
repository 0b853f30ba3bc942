package config

import "fmt"

type AzureSpeechConfig struct {
	ApiKey string
	Region string
	Voice  string
	// Endpoint overrides the region-derived synthesis URL when set.
	Endpoint string
	// MaxInputChars is the longest text a single synthesis request may carry.
	// Longer narrations are chunked upstream.
	MaxInputChars int
	// RequestsPerSecond throttles synthesis calls against the service quota.
	RequestsPerSecond float64
}

func GetAzureSpeechConfig() (*AzureSpeechConfig, error) {
	apiKey := envString("AZURE_TTS_KEY", "")
	if apiKey == "" {
		return nil, fmt.Errorf("AZURE_TTS_KEY must be set")
	}

	maxInputChars, err := envInt("AZURE_TTS_MAX_INPUT_CHARS", 2000)
	if err != nil {
		return nil, err
	}

	return &AzureSpeechConfig{
		ApiKey:            apiKey,
		Region:            envString("AZURE_TTS_REGION", "ukwest"),
		Voice:             envString("AZURE_TTS_VOICE", "en-US-JasonNeural"),
		Endpoint:          envString("AZURE_TTS_ENDPOINT", ""),
		MaxInputChars:     maxInputChars,
		RequestsPerSecond: 2,
	}, nil
}

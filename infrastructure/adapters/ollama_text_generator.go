package adapters

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"

	"generate-video-pipeline/application/ports/outbound"
	"generate-video-pipeline/config"
	"generate-video-pipeline/domain"
)

type ollamaGenerateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type ollamaGenerateResponse struct {
	Response string `json:"response"`
}

type ollamaTextGenerator struct {
	ContentFetcher
	logger       outbound.LoggerPort
	ollamaConfig *config.OllamaConfig
}

func NewOllamaTextGenerator(contentFetcher ContentFetcher, ollamaConfig *config.OllamaConfig, logger outbound.LoggerPort) outbound.TextGeneratorPort {
	return &ollamaTextGenerator{
		ContentFetcher: contentFetcher,
		logger:         logger,
		ollamaConfig:   ollamaConfig,
	}
}

func (o *ollamaTextGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	req, err := o.getRequest(ctx, prompt)
	if err != nil {
		o.logger.Error(err, "Failed to create the HTTP request for story generation")
		return "", domain.Permanent(err)
	}

	rawRes, err := o.FetchContent(req)
	if err != nil {
		o.logger.Error(err, "Failed to fetch the generated story")
		return "", err
	}

	var ollamaRes ollamaGenerateResponse
	if err := json.Unmarshal(rawRes, &ollamaRes); err != nil {
		o.logger.Error(err, "Failed to unmarshal the Ollama response")
		return "", domain.Permanent(err)
	}

	return ollamaRes.Response, nil
}

func (o *ollamaTextGenerator) getRequest(ctx context.Context, prompt string) (*http.Request, error) {
	reqBody := ollamaGenerateRequest{
		Model:  o.ollamaConfig.Model,
		Prompt: prompt,
		Stream: false,
	}

	jsonPayload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", o.ollamaConfig.Endpoint+"/api/generate", bytes.NewBuffer(jsonPayload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	return req, nil
}

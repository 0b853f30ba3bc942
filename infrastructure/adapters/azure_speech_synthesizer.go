package adapters

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"generate-video-pipeline/application/ports/outbound"
	"generate-video-pipeline/config"
	"generate-video-pipeline/domain"
)

// outputFormat is requested explicitly so the bitrate is known: with a fixed
// 32 kbit/s CBR stream the narration duration follows from the byte count.
const azureOutputFormat = "audio-16khz-32kbitrate-mono-mp3"
const azureBitrateBitsPerSecond = 32000

type azureSpeechSynthesizer struct {
	ContentFetcher
	logger       outbound.LoggerPort
	speechConfig *config.AzureSpeechConfig
	limiter      *rate.Limiter
}

func NewAzureSpeechSynthesizer(contentFetcher ContentFetcher, speechConfig *config.AzureSpeechConfig, logger outbound.LoggerPort) outbound.SpeechSynthesizerPort {
	return &azureSpeechSynthesizer{
		ContentFetcher: contentFetcher,
		logger:         logger,
		speechConfig:   speechConfig,
		limiter:        rate.NewLimiter(rate.Limit(speechConfig.RequestsPerSecond), 1),
	}
}

func (a *azureSpeechSynthesizer) MaxInputLength() int {
	return a.speechConfig.MaxInputChars
}

func (a *azureSpeechSynthesizer) Synthesize(ctx context.Context, text string) ([]byte, time.Duration, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return nil, 0, domain.Cancelled(err)
	}

	req, err := a.getRequest(ctx, text)
	if err != nil {
		a.logger.Error(err, "Failed to construct the HTTP request for speech synthesis")
		return nil, 0, domain.Permanent(err)
	}

	audio, err := a.FetchContent(req)
	if err != nil {
		a.logger.Error(err, "Failed to fetch synthesized speech")
		return nil, 0, err
	}
	if len(audio) == 0 {
		err := fmt.Errorf("speech service returned an empty audio payload")
		a.logger.Error(err, "Empty synthesis response")
		return nil, 0, domain.Permanent(err)
	}

	duration := time.Duration(float64(len(audio)*8) / azureBitrateBitsPerSecond * float64(time.Second))
	return audio, duration, nil
}

func (a *azureSpeechSynthesizer) getRequest(ctx context.Context, text string) (*http.Request, error) {
	endpoint := a.speechConfig.Endpoint
	if endpoint == "" {
		endpoint = fmt.Sprintf("https://%s.tts.speech.microsoft.com/cognitiveservices/v1", a.speechConfig.Region)
	}

	body, err := a.buildSSML(text)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewBuffer(body))
	if err != nil {
		return nil, err
	}

	reqHeaders := map[string]string{
		"Ocp-Apim-Subscription-Key": a.speechConfig.ApiKey,
		"Content-Type":              "application/ssml+xml",
		"X-Microsoft-OutputFormat":  azureOutputFormat,
		"User-Agent":                "generate-video-pipeline",
	}
	for key, value := range reqHeaders {
		req.Header.Add(key, value)
	}

	return req, nil
}

func (a *azureSpeechSynthesizer) buildSSML(text string) ([]byte, error) {
	var escaped bytes.Buffer
	if err := xml.EscapeText(&escaped, []byte(text)); err != nil {
		return nil, err
	}

	ssml := fmt.Sprintf(`<speak version="1.0" xmlns="http://www.w3.org/2001/10/synthesis" xml:lang="en-US">`+
		`<voice name="%s">%s</voice></speak>`, a.speechConfig.Voice, escaped.String())

	return []byte(ssml), nil
}

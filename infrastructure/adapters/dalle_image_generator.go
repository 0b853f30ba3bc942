package adapters

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"generate-video-pipeline/application/ports/outbound"
	"generate-video-pipeline/config"
	"generate-video-pipeline/domain"
)

type DalleApiRequest struct {
	Prompt         string `json:"prompt"`
	Size           string `json:"size"`
	Number         int    `json:"n"`
	Quality        string `json:"quality"`
	Style          string `json:"style"`
	ResponseFormat string `json:"response_format"`
}

type DalleApiResponse struct {
	Data []struct {
		B64Json string `json:"b64_json"`
	} `json:"data"`
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type dalleImageGenerator struct {
	ContentFetcher
	logger      outbound.LoggerPort
	dalleConfig *config.DalleConfig
}

func NewDalleImageGenerator(contentFetcher ContentFetcher, dalleConfig *config.DalleConfig, logger outbound.LoggerPort) outbound.ImageGeneratorPort {
	return &dalleImageGenerator{
		ContentFetcher: contentFetcher,
		logger:         logger,
		dalleConfig:    dalleConfig,
	}
}

func (i *dalleImageGenerator) Generate(ctx context.Context, prompt string, resolution domain.Resolution) ([]byte, error) {
	req, err := i.getRequest(ctx, prompt, resolution)
	if err != nil {
		i.logger.Error(err, "Failed to create the HTTP request for image generation")
		return nil, domain.Permanent(err)
	}

	rawRes, err := i.FetchContent(req)
	if err != nil {
		if rejected := contentPolicyRejection(rawRes, err); rejected != nil {
			i.logger.Error(rejected, "Image prompt rejected by content policy")
			return nil, rejected
		}
		i.logger.Error(err, "Failed to fetch the generated image")
		return nil, err
	}

	var dalleRes DalleApiResponse
	if err := json.Unmarshal(rawRes, &dalleRes); err != nil {
		i.logger.Error(err, "Failed to unmarshal the DALL-E response")
		return nil, domain.Permanent(err)
	}
	if len(dalleRes.Data) == 0 {
		err := fmt.Errorf("DALL-E response contained no image data")
		i.logger.Error(err, "Empty image generation response")
		return nil, domain.Permanent(err)
	}

	decodedImage, err := base64.StdEncoding.DecodeString(dalleRes.Data[0].B64Json)
	if err != nil {
		i.logger.Error(err, "Failed to decode the image payload")
		return nil, domain.Permanent(err)
	}

	return decodedImage, nil
}

// contentPolicyRejection upgrades a permanent API failure to ContentRejected
// when the error body carries OpenAI's content policy code.
func contentPolicyRejection(body []byte, err error) error {
	if domain.KindOf(err) != domain.KindPermanent || len(body) == 0 {
		return nil
	}
	var dalleRes DalleApiResponse
	if jsonErr := json.Unmarshal(body, &dalleRes); jsonErr != nil {
		return nil
	}
	if strings.Contains(dalleRes.Error.Code, "content_policy") {
		return domain.ContentRejected(fmt.Errorf("%s", dalleRes.Error.Message))
	}
	return nil
}

func (i *dalleImageGenerator) getRequest(ctx context.Context, prompt string, resolution domain.Resolution) (*http.Request, error) {
	reqBody := DalleApiRequest{
		Prompt:         prompt,
		Size:           resolution.String(),
		Number:         1,
		Quality:        i.dalleConfig.Quality,
		Style:          i.dalleConfig.Style,
		ResponseFormat: "b64_json",
	}

	jsonPayload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", i.dalleConfig.ApiUrl, bytes.NewBuffer(jsonPayload))
	if err != nil {
		return nil, err
	}

	reqHeaders := map[string]string{
		"Authorization": "Bearer " + i.dalleConfig.ApiKey,
		"Content-Type":  "application/json",
	}
	for key, value := range reqHeaders {
		req.Header.Add(key, value)
	}

	return req, nil
}

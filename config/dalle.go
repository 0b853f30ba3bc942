package config

import "fmt"

type DalleConfig struct {
	ApiUrl  string
	ApiKey  string
	Quality string
	Style   string
}

func GetDalleConfig() (*DalleConfig, error) {
	apiKey := envString("DALLE_API_KEY", "")
	if apiKey == "" {
		return nil, fmt.Errorf("DALLE_API_KEY must be set")
	}

	return &DalleConfig{
		ApiUrl:  envString("DALLE_API_URL", "https://api.openai.com/v1/images/generations"),
		ApiKey:  apiKey,
		Quality: envString("DALLE_QUALITY", "hd"),
		Style:   envString("DALLE_STYLE", "natural"),
	}, nil
}

package config

type OllamaConfig struct {
	Endpoint string
	Model    string
}

func GetOllamaConfig() (*OllamaConfig, error) {
	return &OllamaConfig{
		Endpoint: envString("OLLAMA_ENDPOINT", "http://localhost:11434"),
		Model:    envString("OLLAMA_MODEL", "mistral"),
	}, nil
}

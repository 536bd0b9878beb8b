package config

import "os"

// APIKeySource represents where an API key comes from.
type APIKeySource string

const (
	KeySourceEnv    APIKeySource = "env"
	KeySourceConfig APIKeySource = "config"
	KeySourceNone   APIKeySource = "none"
)

// KeyStatus represents the status of an API key.
type KeyStatus struct {
	Name   string       `json:"name"`
	Source APIKeySource `json:"source"`
	IsSet  bool         `json:"is_set"`
	Masked string       `json:"masked,omitempty"` // e.g., "sk-...abc"
}

// CheckAPIKeys returns the status of the LLM credentials.
func CheckAPIKeys(cfg *Config) []KeyStatus {
	keys := []KeyStatus{
		checkKey("LLM API Key", cfg.LLM.APIKey, EnvPrefix+"_LLM_API_KEY", "AZURE_OPENAI_API_KEY2", "AZURE_OPENAI_API_KEY", "OPENAI_API_KEY"),
	}
	if cfg.LLM.Provider == "azure" {
		ep := checkKey("Azure OpenAI Endpoint", cfg.LLM.Endpoint, EnvPrefix+"_LLM_ENDPOINT", "AZURE_OPENAI_ENDPOINT2", "AZURE_OPENAI_ENDPOINT")
		// endpoints are not secret
		ep.Masked = cfg.LLM.Endpoint
		keys = append(keys, ep)
	}
	return keys
}

// checkKey checks if a key is set and where it came from.
func checkKey(name, value string, envVars ...string) KeyStatus {
	status := KeyStatus{
		Name:  name,
		IsSet: value != "",
	}

	if value == "" {
		status.Source = KeySourceNone
		return status
	}

	status.Source = KeySourceConfig
	for _, env := range envVars {
		if os.Getenv(env) != "" {
			status.Source = KeySourceEnv
			break
		}
	}
	status.Masked = maskKey(value)
	return status
}

// maskKey masks an API key for display, showing only first 3 and last 3 chars.
func maskKey(key string) string {
	if len(key) <= 8 {
		return "***"
	}
	return key[:3] + "..." + key[len(key)-3:]
}

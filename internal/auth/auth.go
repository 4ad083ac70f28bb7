// Package auth resolves completion-service API keys from the OS keychain,
// environment variables, or an interactive terminal prompt.
package auth

import (
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/zalando/go-keyring"
	"golang.org/x/term"
)

const (
	serviceName   = "textran"
	openaiAccount = "openai-api-key"
	geminiAccount = "gemini-api-key"
	openaiEnvVar  = "OPENAI_API_KEY"
	geminiEnvVar  = "GEMINI_API_KEY"
)

func accountFor(service string) (account, envVar string) {
	if service == "gemini" {
		return geminiAccount, geminiEnvVar
	}
	return openaiAccount, openaiEnvVar
}

// GetKey retrieves the API key for a provider ("openai" or "gemini").
// If allowEnv is false, environment variables are ignored.
func GetKey(service string, allowEnv bool) (string, string) {
	account, envVar := accountFor(service)

	key, err := keyring.Get(serviceName, account)
	if err == nil && key != "" {
		return strings.TrimSpace(key), "Keychain"
	}

	if allowEnv {
		if key := os.Getenv(envVar); key != "" {
			return strings.TrimSpace(key), "Environment Variable"
		}
	}

	return "", ""
}

// SaveKey saves the key for a provider to the OS keychain.
func SaveKey(service, key string) error {
	account, _ := accountFor(service)
	return keyring.Set(serviceName, account, strings.TrimSpace(key))
}

// DeleteKey removes the key for a provider from the OS keychain.
func DeleteKey(service string) error {
	account, _ := accountFor(service)
	return keyring.Delete(serviceName, account)
}

// GetStatus reports whether a key exists for a provider in the keychain.
func GetStatus(service string) bool {
	account, _ := accountFor(service)
	key, err := keyring.Get(serviceName, account)
	return err == nil && key != ""
}

// GetEnvKey retrieves the key from environment variables only.
func GetEnvKey(service string) (string, bool) {
	_, envVar := accountFor(service)
	key := strings.TrimSpace(os.Getenv(envVar))
	if key == "" {
		return "", false
	}
	return key, true
}

// PromptForAPIKey securely prompts the user for their API key.
func PromptForAPIKey(prompt string) (string, error) {
	fmt.Print(prompt)
	byteKey, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		return "", err
	}
	fmt.Println()
	return strings.TrimSpace(string(byteKey)), nil
}

// Package config manages depscope settings through a viper singleton:
// defaults, an optional .depscope.yaml file, and DEPSCOPE_* environment
// variables, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

var v *viper.Viper

// Configuration keys.
const (
	KeyJiraURL      = "jira.url"
	KeyJiraUsername = "jira.username"
	KeyJiraAPIToken = "jira.api-token"

	KeyMaxDepth      = "analyze.max-depth"
	KeyCommentWindow = "analyze.comment-window"
	KeySimilarLimit  = "analyze.similar-limit"
	KeyDetectSparse  = "analyze.detect-sparse"

	KeyHTTPTimeout = "http.timeout"
)

// Initialize sets up the viper instance with defaults, environment binding,
// and an optional config file in the working directory or home directory.
// Safe to call more than once; each call rebuilds the instance.
func Initialize() error {
	v = viper.New()

	v.SetDefault(KeyJiraURL, "")
	v.SetDefault(KeyJiraUsername, "")
	v.SetDefault(KeyJiraAPIToken, "")
	v.SetDefault(KeyMaxDepth, 3)
	v.SetDefault(KeyCommentWindow, 5)
	v.SetDefault(KeySimilarLimit, 10)
	v.SetDefault(KeyDetectSparse, true)
	v.SetDefault(KeyHTTPTimeout, 30*time.Second)

	v.SetEnvPrefix("DEPSCOPE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetConfigName(".depscope")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME")

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine; a malformed one is not.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("read config file: %w", err)
		}
	}

	return nil
}

// GetString returns a string config value.
func GetString(key string) string { return v.GetString(key) }

// GetInt returns an integer config value.
func GetInt(key string) int { return v.GetInt(key) }

// GetBool returns a boolean config value.
func GetBool(key string) bool { return v.GetBool(key) }

// GetDuration returns a duration config value.
func GetDuration(key string) time.Duration { return v.GetDuration(key) }

// Set overrides a config value, typically from a command-line flag.
func Set(key string, value any) { v.Set(key, value) }

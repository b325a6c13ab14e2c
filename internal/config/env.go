package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// APIKeyEnv is the environment variable holding the Gemini API key.
const APIKeyEnv = "GOOGLE_API_KEY"

// envFileName is the dotenv file searched for by LoadEnv.
const envFileName = ".env"

// FindEnvFile walks from dir up to the filesystem root and returns the first
// .env file found, or an empty string.
func FindEnvFile(dir string) string {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return ""
	}

	for {
		candidate := filepath.Join(dir, envFileName)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// LoadEnv loads the nearest .env file above the working directory into the
// process environment. Variables that are already set are not overridden.
// A missing .env file is not an error.
func LoadEnv() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}

	path := FindEnvFile(cwd)
	if path == "" {
		return "", nil
	}

	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}
		return "", err
	}

	return path, nil
}

// APIKeyFromEnv returns the Gemini API key from the process environment.
func APIKeyFromEnv() string {
	return os.Getenv(APIKeyEnv)
}

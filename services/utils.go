package services

import (
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

var allowedImageExtensions = []string{".jpg", ".jpeg", ".png", ".heic", ".heif", ".webp"}

// IsSupportedImageName reports whether a client supplied file name has an
// image extension we accept for wardrobe photos and outfit shots.
func IsSupportedImageName(fileName string) bool {
	ext := strings.ToLower(filepath.Ext(fileName))
	for _, allowed := range allowedImageExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

func StrPointer(str string) *string {
	return &str
}

func UintPointer(i uint) *uint {
	return &i
}

func ReadFileFromUrl(url string) ([]byte, error) {
	client := &http.Client{Timeout: 60 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %v while downloading %s", resp.StatusCode, url)
	}
	return io.ReadAll(resp.Body)
}

func GetEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func DecodeBase64EnvPrivateKey(envKey string) (string, error) {
	encoded := os.Getenv(envKey)
	if encoded == "" {
		return "", fmt.Errorf("environment variable %s is not set", envKey)
	}
	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("error decoding %s: %v", envKey, err)
	}
	return string(decoded), nil
}

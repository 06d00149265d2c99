package announce

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"

	"cafe-pos/internal/config"
	"cafe-pos/internal/logger"
)

type ttsRequest struct {
	Text      string  `json:"text"`
	Speaker   string  `json:"speaker"`
	Volume    float64 `json:"volume"`
	Speed     float64 `json:"speed"`
	TypeMedia string  `json:"type_media"`
	SaveFile  bool    `json:"save_file"`
}

type ttsResponse struct {
	AudioURL string `json:"audio_url"`
}

// TTSClient turns text into a playable audio URL through the Botnoi voice
// API.
type TTSClient struct {
	cfg     config.TTSConfig
	http    *http.Client
	breaker *gobreaker.CircuitBreaker[string]
	logger  *logger.Logger
}

func NewTTSClient(cfg config.TTSConfig, log *logger.Logger) *TTSClient {
	c := &TTSClient{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: log,
	}
	c.breaker = gobreaker.NewCircuitBreaker[string](gobreaker.Settings{
		Name:        "tts",
		MaxRequests: 1,
		Timeout:     time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit_state_changed", fmt.Sprintf("Circuit %s moved from %s to %s", name, from, to), "", nil)
		},
	})
	return c
}

// Synthesize returns the audio URL for text.
func (c *TTSClient) Synthesize(ctx context.Context, text string) (string, error) {
	url, err := c.breaker.Execute(func() (string, error) {
		return c.synthesize(ctx, text)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return "", fmt.Errorf("tts service unavailable: %w", err)
	}
	return url, err
}

func (c *TTSClient) synthesize(ctx context.Context, text string) (string, error) {
	body, err := json.Marshal(ttsRequest{
		Text:      text,
		Speaker:   c.cfg.Speaker,
		Volume:    c.cfg.Volume,
		Speed:     c.cfg.Speed,
		TypeMedia: c.cfg.Format,
		SaveFile:  true,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal tts request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build tts request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Botnoi-Token", c.cfg.Token)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("tts request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("tts request returned %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var out ttsResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode tts response: %w", err)
	}
	if out.AudioURL == "" {
		return "", errors.New("tts response has no audio_url")
	}
	return out.AudioURL, nil
}

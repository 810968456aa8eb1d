// Package voiceclone is a client for the txtparrot voice-clone server. The
// server keeps one cloned voice per user ID and speaks text with it.
package voiceclone

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

// DefaultTimeout bounds a whole request, including reading the response.
// Cloning and synthesis both run a model on the server.
const DefaultTimeout = 2 * time.Minute

// maxAudioSize caps the WAV response read from /tts.
var maxAudioSize int64 = 50 * 1024 * 1024

var (
	// ErrNoURL is returned when the client has no server address.
	ErrNoURL = errors.New("voice clone server URL is not set")
	// ErrNoUser is returned when a request has no user ID.
	ErrNoUser = errors.New("voice clone user ID is not set")
	// ErrAudioTooLarge is returned when synthesized audio exceeds the
	// response cap.
	ErrAudioTooLarge = errors.New("voice clone audio is too large")
)

// APIError is an error reported by the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("voice clone server error %d: %s", e.StatusCode, e.Message)
}

// NotFound reports whether the server does not know the user's voice.
func (e *APIError) NotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// Client talks to a voice-clone server.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

// New returns a client for the server at baseURL.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: DefaultTimeout},
	}
}

// Request is a synthesis request.
type Request struct {
	Text     string  `json:"text"`
	Language string  `json:"language"`
	UserID   string  `json:"userId"`
	Speed    float64 `json:"speed"`
}

// Clone uploads a voice sample for userID and returns the server's
// confirmation message.
func (c *Client) Clone(ctx context.Context, userID, audioPath string) (string, error) {
	if userID == "" {
		return "", ErrNoUser
	}

	f, err := os.Open(audioPath)
	if err != nil {
		return "", fmt.Errorf("open voice sample: %w", err)
	}
	defer f.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("audio", filepath.Base(audioPath))
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, f); err != nil {
		return "", fmt.Errorf("read voice sample: %w", err)
	}
	if err := mw.WriteField("userId", userID); err != nil {
		return "", err
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	resp, err := c.post(ctx, "/clone", mw.FormDataContentType(), &body)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var result struct {
		Success string `json:"success"`
		Error   string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		if resp.StatusCode != http.StatusOK {
			return "", &APIError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		}
		return "", fmt.Errorf("decode clone response: %w", err)
	}
	if resp.StatusCode != http.StatusOK || result.Error != "" {
		return "", &APIError{StatusCode: resp.StatusCode, Message: result.Error}
	}
	log.Debug("voice cloned", "user", userID)
	return result.Success, nil
}

// Synthesize speaks req.Text with the user's cloned voice and returns WAV data.
func (c *Client) Synthesize(ctx context.Context, req Request) ([]byte, error) {
	if req.UserID == "" {
		return nil, ErrNoUser
	}
	if req.Speed == 0 {
		req.Speed = 1
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	resp, err := c.post(ctx, "/tts", "application/json", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apiError(resp)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxAudioSize+1))
	if err != nil {
		return nil, fmt.Errorf("read audio: %w", err)
	}
	if int64(len(data)) > maxAudioSize {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrAudioTooLarge, maxAudioSize)
	}
	return data, nil
}

func (c *Client) post(ctx context.Context, path, contentType string, body io.Reader) (*http.Response, error) {
	if c.BaseURL == "" {
		return nil, ErrNoURL
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(c.BaseURL, "/")+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentType)

	hc := c.HTTP
	if hc == nil {
		hc = http.DefaultClient
	}
	resp, err := hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("voice clone request: %w", err)
	}
	return resp, nil
}

func apiError(resp *http.Response) error {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	var body struct {
		Error string `json:"error"`
	}
	msg := strings.TrimSpace(string(b))
	if json.Unmarshal(b, &body) == nil && body.Error != "" {
		msg = body.Error
	}
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return &APIError{StatusCode: resp.StatusCode, Message: msg}
}

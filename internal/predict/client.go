// Package predict submits domain sequences to the NVIDIA-hosted AlphaFold2
// service and converts its responses into PDB files.
package predict

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

	"golang.org/x/time/rate"
)

// Service defaults for the hosted AlphaFold2 endpoint.
const (
	DefaultSubmitURL    = "https://health.api.nvidia.com/v1/alphafold2"
	DefaultStatusURL    = "https://health.api.nvidia.com/v1/status"
	DefaultPollInterval = 8 * time.Second
	// DefaultMinLength is the shortest sequence the service accepts.
	DefaultMinLength = 50
)

var (
	// ErrSequenceTooShort is returned before any request when the sequence
	// is below Client.MinLength.
	ErrSequenceTooShort = errors.New("sequence shorter than the service minimum")
	// ErrNoRequestID is returned when a 202 response lacks the id needed
	// to poll for the result.
	ErrNoRequestID = errors.New("accepted response carried no nvcf-reqid")
)

// httpClient performs requests when Client.HTTPClient is nil; tests may
// replace it with a mock transport.
var httpClient = &http.Client{Timeout: 10 * time.Minute}

// ServiceError is a non-success HTTP response from the prediction service.
type ServiceError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *ServiceError) Error() string {
	body := strings.TrimSpace(e.Body)
	if len(body) > 200 {
		body = body[:200] + "..."
	}
	return fmt.Sprintf("alphafold2 request failed: %s: %s", e.Status, body)
}

// request mirrors the JSON body expected by the AlphaFold2 endpoint.
type request struct {
	Sequence           string   `json:"sequence"`
	Algorithm          string   `json:"algorithm"`
	EValue             float64  `json:"e_value"`
	Iterations         int      `json:"iterations"`
	Databases          []string `json:"databases"`
	RelaxPrediction    bool     `json:"relax_prediction"`
	SkipTemplateSearch bool     `json:"skip_template_search"`
}

// Client talks to the prediction service.
type Client struct {
	SubmitURL    string
	StatusURL    string
	APIKey       string
	HTTPClient   *http.Client
	PollInterval time.Duration
	MinLength    int

	// Polled, when set, is called with the request id each time the service
	// answers 202.
	Polled func(reqID string, attempt int)
}

func (c *Client) client() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return httpClient
}

func (c *Client) minLength() int {
	if c.MinLength <= 0 {
		return DefaultMinLength
	}
	return c.MinLength
}

// Predict submits sequence and returns the raw JSON body of the final
// response. A 202 answer is polled at PollInterval until the service
// returns something other than 202.
func (c *Client) Predict(ctx context.Context, accession, sequence string) ([]byte, error) {
	if len(sequence) < c.minLength() {
		return nil, fmt.Errorf("%s has %d residues (minimum %d): %w", accession, len(sequence), c.minLength(), ErrSequenceTooShort)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	payload, err := json.Marshal(request{
		Sequence:           sequence,
		Algorithm:          "mmseqs2",
		EValue:             0.0001,
		Iterations:         1,
		Databases:          []string{"small_bfd"},
		RelaxPrediction:    false,
		SkipTemplateSearch: true,
	})
	if err != nil {
		return nil, err
	}

	submitURL := c.SubmitURL
	if submitURL == "" {
		submitURL = DefaultSubmitURL
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, submitURL, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	status, hdr, body, err := c.do(req)
	if err != nil {
		return nil, err
	}
	switch {
	case status == http.StatusAccepted:
		reqID := hdr.Get("nvcf-reqid")
		if reqID == "" {
			return nil, ErrNoRequestID
		}
		return c.poll(ctx, reqID)
	case status >= 200 && status < 300:
		return body, nil
	default:
		return nil, &ServiceError{StatusCode: status, Status: statusText(status), Body: string(body)}
	}
}

func (c *Client) poll(ctx context.Context, reqID string) ([]byte, error) {
	every := c.PollInterval
	if every <= 0 {
		every = DefaultPollInterval
	}
	// burst 1 consumed up front so the first status call waits one interval
	lim := rate.NewLimiter(rate.Every(every), 1)
	lim.Allow()

	statusURL := c.StatusURL
	if statusURL == "" {
		statusURL = DefaultStatusURL
	}
	statusURL = strings.TrimRight(statusURL, "/") + "/" + reqID

	for attempt := 1; ; attempt++ {
		if err := lim.Wait(ctx); err != nil {
			return nil, err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, statusURL, nil)
		if err != nil {
			return nil, err
		}
		c.authorize(req)
		status, _, body, err := c.do(req)
		if err != nil {
			return nil, err
		}
		if status == http.StatusAccepted {
			if c.Polled != nil {
				c.Polled(reqID, attempt)
			}
			continue
		}
		if status < 200 || status >= 300 {
			return nil, &ServiceError{StatusCode: status, Status: statusText(status), Body: string(body)}
		}
		return body, nil
	}
}

func (c *Client) authorize(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	req.Header.Set("NVCF-POLL-SECONDS", "300")
}

func (c *Client) do(req *http.Request) (int, http.Header, []byte, error) {
	resp, err := c.client().Do(req)
	if err != nil {
		return 0, nil, nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, nil, fmt.Errorf("read response: %w", err)
	}
	return resp.StatusCode, resp.Header, body, nil
}

func statusText(code int) string {
	return fmt.Sprintf("%d %s", code, http.StatusText(code))
}

// ToPDB converts a service response, a JSON array of PDB text chunks, into
// the PDB file content.
func ToPDB(raw []byte) ([]byte, error) {
	var chunks []string
	if err := json.Unmarshal(raw, &chunks); err != nil {
		return nil, fmt.Errorf("unexpected prediction response shape: %w", err)
	}
	var buf bytes.Buffer
	for _, s := range chunks {
		buf.WriteString(s)
	}
	return buf.Bytes(), nil
}

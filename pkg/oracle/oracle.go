// Package oracle talks to the external model server that turns feature sets
// into scores or position probabilities.
package oracle

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

	"github.com/ohler55/ojg/jp"
	"github.com/ohler55/ojg/oj"

	"github.com/mpapenbr/f1-prediction-engine/log"
	"github.com/mpapenbr/f1-prediction-engine/pkg/model"
)

var (
	ErrUnexpectedResponse = errors.New("unexpected oracle response")
	ErrCountMismatch      = errors.New("prediction count mismatch")
)

const (
	DefaultScorePath       = "$.predictions[*].predictions[0]"
	DefaultProbabilityPath = "$.predictions[*].probabilities"
)

// Regressor returns one score per driver, lower is better.
type Regressor interface {
	Score(ctx context.Context, fs *model.FeatureSet) ([]float64, error)
}

// Classifier returns one probability row per driver, column j is the
// probability of finishing at position j+1.
type Classifier interface {
	Classify(ctx context.Context, fs *model.FeatureSet) ([][]float64, error)
}

type Option func(*HTTPClient)

func WithHTTPClient(c *http.Client) Option {
	return func(h *HTTPClient) { h.client = c }
}

func WithTimeout(d time.Duration) Option {
	return func(h *HTTPClient) { h.client.Timeout = d }
}

// WithScorePath sets the JSONPath selecting one score per instance
func WithScorePath(path string) Option {
	return func(h *HTTPClient) { h.scorePath = path }
}

// WithProbabilityPath sets the JSONPath selecting one probability row per instance
func WithProbabilityPath(path string) Option {
	return func(h *HTTPClient) { h.probPath = path }
}

func WithLogger(l *log.Logger) Option {
	return func(h *HTTPClient) { h.l = l }
}

// HTTPClient calls a model server using the TensorFlow Serving REST layout.
// It implements both Regressor and Classifier, the model name decides what
// is returned.
type HTTPClient struct {
	baseURL   string
	model     string
	client    *http.Client
	scorePath string
	probPath  string
	l         *log.Logger
}

var (
	_ Regressor  = (*HTTPClient)(nil)
	_ Classifier = (*HTTPClient)(nil)
)

func NewHTTPClient(baseURL, modelName string, opts ...Option) *HTTPClient {
	ret := &HTTPClient{
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		model:     modelName,
		client:    &http.Client{Timeout: 30 * time.Second},
		scorePath: DefaultScorePath,
		probPath:  DefaultProbabilityPath,
		l:         log.Default().Named("oracle"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

func (h *HTTPClient) Endpoint() string {
	return fmt.Sprintf("%s/v1/models/%s:predict", h.baseURL, h.model)
}

func (h *HTTPClient) Score(ctx context.Context, fs *model.FeatureSet) ([]float64, error) {
	items, err := h.predict(ctx, fs, h.scorePath)
	if err != nil {
		return nil, err
	}
	ret := make([]float64, len(items))
	for i, item := range items {
		if ret[i], err = toFloat(item); err != nil {
			return nil, fmt.Errorf("%w: score %d: %w", ErrUnexpectedResponse, i, err)
		}
	}
	return ret, nil
}

//nolint:whitespace // can't make both editor and linter happy
func (h *HTTPClient) Classify(
	ctx context.Context,
	fs *model.FeatureSet,
) ([][]float64, error) {
	items, err := h.predict(ctx, fs, h.probPath)
	if err != nil {
		return nil, err
	}
	ret := make([][]float64, len(items))
	for i, item := range items {
		row, ok := item.([]any)
		if !ok {
			return nil, fmt.Errorf("%w: probabilities %d are not a list", ErrUnexpectedResponse, i)
		}
		ret[i] = make([]float64, len(row))
		for j, v := range row {
			if ret[i][j], err = toFloat(v); err != nil {
				return nil, fmt.Errorf("%w: probability %d/%d: %w",
					ErrUnexpectedResponse, i, j, err)
			}
		}
	}
	return ret, nil
}

// Instances builds the request payload. Each row becomes one instance
// carrying the event name, the driver and constructor refs and all features.
func Instances(fs *model.FeatureSet) []map[string]any {
	ret := make([]map[string]any, len(fs.Rows))
	for i, r := range fs.Rows {
		inst := make(map[string]any, len(fs.Keys)+3)
		inst[model.KeyRace] = fs.EventName
		inst[model.KeyDriver] = r.Driver.Ref
		inst[model.KeyConstructor] = r.Driver.ConstructorRef
		for _, k := range fs.Keys {
			inst[k] = r.Values[k]
		}
		ret[i] = inst
	}
	return ret
}

//nolint:whitespace // can't make both editor and linter happy
func (h *HTTPClient) predict(
	ctx context.Context,
	fs *model.FeatureSet,
	path string,
) ([]any, error) {
	expr, err := jp.ParseString(path)
	if err != nil {
		return nil, fmt.Errorf("parse path %q: %w", path, err)
	}
	body, err := json.Marshal(map[string]any{"instances": Instances(fs)})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.Endpoint(),
		bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("oracle request: %w", err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("oracle response: %w", err)
	}
	h.l.Debug("oracle called",
		log.String("model", h.model),
		log.Int("instances", fs.Len()),
		log.Int("status", resp.StatusCode),
		log.Duration("duration", time.Since(start)))
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d: %s",
			ErrUnexpectedResponse, resp.StatusCode, strings.TrimSpace(string(data)))
	}

	obj, err := oj.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnexpectedResponse, err)
	}
	items := expr.Get(obj)
	if len(items) != fs.Len() {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrCountMismatch, len(items), fs.Len())
	}
	return items, nil
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case int64:
		return float64(n), nil
	case int:
		return float64(n), nil
	case json.Number:
		return n.Float64()
	default:
		return 0, fmt.Errorf("not a number: %v", v)
	}
}

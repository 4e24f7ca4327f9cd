package publishers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Supported publisher types.
const (
	TypeHTTP   = "http"
	TypeSQS    = "sqs"
	TypeSNS    = "sns"
	TypePubSub = "pubsub"
)

const (
	defaultWebhookMethod  = "POST"
	defaultWebhookTimeout = 5
	webhookUserAgent      = "signed-book-watch/1.0"
)

// File is the decoded publishers file.
type File struct {
	Publishers []PublisherConfig `json:"publishers" yaml:"publishers"`
}

// PublisherConfig declares one notification sink. Exactly the section
// matching Type is read.
type PublisherConfig struct {
	ID      string                 `json:"id" yaml:"id"`
	Type    string                 `json:"type" yaml:"type"`
	Enabled *bool                  `json:"enabled" yaml:"enabled"`
	HTTP    *HTTPPublisherConfig   `json:"http" yaml:"http"`
	SQS     *SQSPublisherConfig    `json:"sqs" yaml:"sqs"`
	SNS     *SNSPublisherConfig    `json:"sns" yaml:"sns"`
	PubSub  *PubSubPublisherConfig `json:"pubsub" yaml:"pubsub"`
}

// HTTPPublisherConfig points at a webhook receiving the event as JSON.
type HTTPPublisherConfig struct {
	URL            string            `json:"url" yaml:"url"`
	Method         string            `json:"method" yaml:"method"`
	Headers        map[string]string `json:"headers" yaml:"headers"`
	TimeoutSeconds int               `json:"timeout_seconds" yaml:"timeout_seconds"`
}

// SQSPublisherConfig targets a queue. Queue URLs ending in .fifo get a
// message group and deduplication id.
type SQSPublisherConfig struct {
	QueueURL    string          `json:"uri" yaml:"uri"`
	Region      string          `json:"region" yaml:"region"`
	Credentials *AWSCredentials `json:"credentials" yaml:"credentials"`
}

// SNSPublisherConfig targets a topic.
type SNSPublisherConfig struct {
	TopicARN    string          `json:"topic_arn" yaml:"topic_arn"`
	Region      string          `json:"region" yaml:"region"`
	Credentials *AWSCredentials `json:"credentials" yaml:"credentials"`
}

// AWSCredentials pins static keys instead of the default credential chain.
type AWSCredentials struct {
	AccessKeyID     string `json:"access_key_id" yaml:"access_key_id"`
	SecretAccessKey string `json:"secret_access_key" yaml:"secret_access_key"`
	SessionToken    string `json:"session_token" yaml:"session_token"`
}

// PubSubPublisherConfig targets a Google Cloud Pub/Sub topic.
type PubSubPublisherConfig struct {
	ProjectID       string `json:"project_id" yaml:"project_id"`
	Topic           string `json:"topic" yaml:"topic"`
	CredentialsFile string `json:"credentials_file" yaml:"credentials_file"`
}

// LoadFile reads and validates a publishers file. Files ending in .json are
// decoded as JSON, everything else as YAML. Unknown keys are rejected.
func LoadFile(path string) (*File, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read publishers file: %w", err)
	}

	var f File
	if err := decodeFile(path, raw, &f); err != nil {
		return nil, fmt.Errorf("decode publishers file %s: %w", path, err)
	}
	if len(f.Publishers) == 0 {
		return nil, fmt.Errorf("publishers file %s declares no publishers", path)
	}

	seen := make(map[string]struct{}, len(f.Publishers))
	for i := range f.Publishers {
		cfg := &f.Publishers[i]
		cfg.normalize()
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("publishers[%d]: %w", i, err)
		}
		if _, dup := seen[cfg.ID]; dup {
			return nil, fmt.Errorf("duplicate publisher id %q", cfg.ID)
		}
		seen[cfg.ID] = struct{}{}
	}
	return &f, nil
}

func decodeFile(path string, raw []byte, v any) error {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.DisallowUnknownFields()
		return dec.Decode(v)
	}
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	return dec.Decode(v)
}

// Enabled returns the publishers not switched off, in file order.
func (f *File) Enabled() []PublisherConfig {
	if f == nil {
		return nil
	}
	out := make([]PublisherConfig, 0, len(f.Publishers))
	for _, cfg := range f.Publishers {
		if cfg.IsEnabled() {
			out = append(out, cfg)
		}
	}
	return out
}

// ByID looks a publisher up by id.
func (f *File) ByID(id string) (PublisherConfig, bool) {
	if f == nil {
		return PublisherConfig{}, false
	}
	for _, cfg := range f.Publishers {
		if cfg.ID == id {
			return cfg, true
		}
	}
	return PublisherConfig{}, false
}

// IsEnabled defaults to true when the flag is absent.
func (c PublisherConfig) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

func (c *PublisherConfig) normalize() {
	c.ID = strings.TrimSpace(c.ID)
	c.Type = strings.ToLower(strings.TrimSpace(c.Type))

	if h := c.HTTP; h != nil {
		h.URL = strings.TrimSpace(h.URL)
		h.Method = strings.ToUpper(strings.TrimSpace(h.Method))
		if h.Method == "" {
			h.Method = defaultWebhookMethod
		}
		if h.TimeoutSeconds <= 0 {
			h.TimeoutSeconds = defaultWebhookTimeout
		}
		h.Headers = trimHeaders(h.Headers)
	}
	if q := c.SQS; q != nil {
		q.QueueURL = strings.TrimSpace(q.QueueURL)
		q.Region = strings.TrimSpace(q.Region)
	}
	if s := c.SNS; s != nil {
		s.TopicARN = strings.TrimSpace(s.TopicARN)
		s.Region = strings.TrimSpace(s.Region)
	}
	if p := c.PubSub; p != nil {
		p.ProjectID = strings.TrimSpace(p.ProjectID)
		p.Topic = strings.TrimSpace(p.Topic)
		p.CredentialsFile = strings.TrimSpace(p.CredentialsFile)
	}
}

func trimHeaders(headers map[string]string) map[string]string {
	out := make(map[string]string, len(headers))
	for k, v := range headers {
		k, v = strings.TrimSpace(k), strings.TrimSpace(v)
		if k != "" && v != "" {
			out[k] = v
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// Validate checks that the section for Type is present and complete.
func (c PublisherConfig) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("publisher id is required")
	}

	var missing string
	switch c.Type {
	case TypeHTTP:
		switch {
		case c.HTTP == nil:
			missing = "http"
		case c.HTTP.URL == "":
			missing = "http.url"
		}
	case TypeSQS:
		switch {
		case c.SQS == nil:
			missing = "sqs"
		case c.SQS.QueueURL == "":
			missing = "sqs.uri"
		case c.SQS.Region == "":
			missing = "sqs.region"
		default:
			return validateAWSCredentials(c.ID, c.SQS.Credentials)
		}
	case TypeSNS:
		switch {
		case c.SNS == nil:
			missing = "sns"
		case c.SNS.TopicARN == "":
			missing = "sns.topic_arn"
		case c.SNS.Region == "":
			missing = "sns.region"
		default:
			return validateAWSCredentials(c.ID, c.SNS.Credentials)
		}
	case TypePubSub:
		switch {
		case c.PubSub == nil:
			missing = "pubsub"
		case c.PubSub.ProjectID == "":
			missing = "pubsub.project_id"
		case c.PubSub.Topic == "":
			missing = "pubsub.topic"
		}
	case "":
		missing = "type"
	default:
		return fmt.Errorf("publisher %q has unsupported type %q", c.ID, c.Type)
	}

	if missing != "" {
		return fmt.Errorf("publisher %q: %s is required", c.ID, missing)
	}
	return nil
}

package bedrock

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
)

const anthropicVersion = "bedrock-2023-05-31"

// Options configures the Bedrock runtime client and its fixed sampling
// parameters.
type Options struct {
	Region         string
	ModelID        string
	MaxTokens      int
	Temperature    float64
	TopP           float64
	TopK           int
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
}

// InvokeModelAPI is the slice of the Bedrock runtime SDK this client uses.
type InvokeModelAPI interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// Client invokes an Anthropic model hosted on AWS Bedrock.
type Client struct {
	api  InvokeModelAPI
	opts Options
}

// NewClient builds a client with connect/read timeouts bound on the
// underlying HTTP transport so a stuck call cannot hang the process.
func NewClient(ctx context.Context, opts Options) (*Client, error) {
	httpClient := &http.Client{
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout: opts.ConnectTimeout,
			}).DialContext,
			TLSHandshakeTimeout:   opts.ConnectTimeout,
			ResponseHeaderTimeout: opts.ReadTimeout,
		},
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(opts.Region),
		awsconfig.WithHTTPClient(httpClient),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return &Client{
		api:  bedrockruntime.NewFromConfig(awsCfg),
		opts: opts,
	}, nil
}

// NewClientWithAPI wires an explicit SDK surface; used by tests.
func NewClientWithAPI(api InvokeModelAPI, opts Options) *Client {
	return &Client{api: api, opts: opts}
}

type invokePayload struct {
	AnthropicVersion string    `json:"anthropic_version"`
	System           string    `json:"system,omitempty"`
	Messages         []Message `json:"messages"`
	MaxTokens        int       `json:"max_tokens"`
	Temperature      float64   `json:"temperature"`
	TopK             int       `json:"top_k"`
	TopP             float64   `json:"top_p"`
}

func (c *Client) Invoke(ctx context.Context, req Request) (Response, error) {
	body, err := json.Marshal(invokePayload{
		AnthropicVersion: anthropicVersion,
		System:           req.System,
		Messages:         req.Messages,
		MaxTokens:        c.opts.MaxTokens,
		Temperature:      c.opts.Temperature,
		TopK:             c.opts.TopK,
		TopP:             c.opts.TopP,
	})
	if err != nil {
		return Response{}, fmt.Errorf("marshal model payload: %w", err)
	}

	out, err := c.api.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(c.opts.ModelID),
		Body:        body,
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
	})
	if err != nil {
		return Response{}, fmt.Errorf("invoke model %s: %w", c.opts.ModelID, err)
	}

	var resp Response
	if err := json.Unmarshal(out.Body, &resp); err != nil {
		return Response{}, fmt.Errorf("decode model response: %w", err)
	}
	return resp, nil
}

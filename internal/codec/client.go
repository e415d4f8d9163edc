package codec

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/danielpatrickdp/query-coordinator/internal/segment"
)

// Request and response field names on the wire.
const (
	fieldPrompt      = "prompt"
	fieldTemperature = "temperature"
	fieldMaxTokens   = "max_tokens"
	fieldTier        = "tier"
	fieldText        = "text"
	fieldTokensUsed  = "tokens_used"
	fieldError       = "error"
)

// #region client-struct
// ModelClient is a segment.ModelClient backed by a remote ModelService.
type ModelClient struct {
	conn   *grpc.ClientConn
	client ModelServiceClient
}
// #endregion client-struct

// #region constructor
// NewModelClient connects to the model service at addr.
func NewModelClient(addr string, opts ...grpc.DialOption) (*ModelClient, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("grpc dial %s: %w", addr, err)
	}
	return &ModelClient{
		conn:   conn,
		client: NewModelServiceClient(conn),
	}, nil
}

// NewModelClientWithService creates a ModelClient with an injected service implementation.
// Used for testing without a real gRPC connection.
func NewModelClientWithService(svc ModelServiceClient) *ModelClient {
	return &ModelClient{client: svc}
}
// #endregion constructor

// #region close
// Close shuts down the gRPC connection.
func (c *ModelClient) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}
// #endregion close

// #region complete
// Complete sends one prompt to the model service.
func (c *ModelClient) Complete(ctx context.Context, prompt string, opts segment.CompletionOptions) (string, int, error) {
	req, err := structpb.NewStruct(map[string]interface{}{
		fieldPrompt:      prompt,
		fieldTemperature: opts.Temperature,
		fieldMaxTokens:   opts.MaxTokens,
		fieldTier:        string(opts.Tier),
	})
	if err != nil {
		return "", 0, fmt.Errorf("encode request: %w", err)
	}

	resp, err := c.client.Complete(ctx, req)
	if err != nil {
		return "", 0, fmt.Errorf("complete rpc: %w", err)
	}

	fields := resp.GetFields()
	if msg := fields[fieldError].GetStringValue(); msg != "" {
		return "", 0, fmt.Errorf("complete rpc: %w", errors.New(msg))
	}
	return fields[fieldText].GetStringValue(), int(fields[fieldTokensUsed].GetNumberValue()), nil
}
// #endregion complete

package codec

import (
	"context"
	"errors"
	"log"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/danielpatrickdp/query-coordinator/internal/segment"
)

// #region server
// Server exposes any segment.ModelClient as a ModelService.
type Server struct {
	model segment.ModelClient
}

// NewServer wraps model.
func NewServer(model segment.ModelClient) *Server {
	return &Server{model: model}
}

// Complete decodes the request, calls the wrapped model and encodes its reply.
func (s *Server) Complete(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	fields := req.GetFields()
	prompt := fields[fieldPrompt].GetStringValue()
	if prompt == "" {
		return nil, status.Error(codes.InvalidArgument, "prompt is required")
	}
	opts := segment.CompletionOptions{
		Temperature: fields[fieldTemperature].GetNumberValue(),
		MaxTokens:   int(fields[fieldMaxTokens].GetNumberValue()),
		Tier:        segment.Tier(fields[fieldTier].GetStringValue()),
	}

	text, tokens, err := s.model.Complete(ctx, prompt, opts)
	if err != nil {
		log.Printf("[CODEC] complete failed: %v", err)
		return nil, status.Error(errorCode(err), err.Error())
	}

	out, err := structpb.NewStruct(map[string]interface{}{
		fieldText:       text,
		fieldTokensUsed: tokens,
	})
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

func errorCode(err error) codes.Code {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return codes.DeadlineExceeded
	case errors.Is(err, context.Canceled):
		return codes.Canceled
	default:
		return codes.Unavailable
	}
}
// #endregion server

package codec

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// The model service carries google.protobuf.Struct payloads so providers in
// any language can implement it without shared generated code.
//
//	service ModelService {
//	  rpc Complete(google.protobuf.Struct) returns (google.protobuf.Struct);
//	}

// #region client-stub
const (
	ModelService_ServiceName             = "segmenter.v1.ModelService"
	ModelService_Complete_FullMethodName = "/segmenter.v1.ModelService/Complete"
)

// ModelServiceClient is the client API for ModelService.
type ModelServiceClient interface {
	Complete(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
}

type modelServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewModelServiceClient binds the client API to a connection.
func NewModelServiceClient(cc grpc.ClientConnInterface) ModelServiceClient {
	return &modelServiceClient{cc}
}

func (c *modelServiceClient) Complete(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, ModelService_Complete_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
// #endregion client-stub

// #region server-stub
// ModelServiceServer is the server API for ModelService.
type ModelServiceServer interface {
	Complete(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// RegisterModelServiceServer registers srv on s.
func RegisterModelServiceServer(s grpc.ServiceRegistrar, srv ModelServiceServer) {
	s.RegisterService(&ModelService_ServiceDesc, srv)
}

func _ModelService_Complete_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ModelServiceServer).Complete(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: ModelService_Complete_FullMethodName,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ModelServiceServer).Complete(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// ModelService_ServiceDesc is the grpc.ServiceDesc for ModelService.
var ModelService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ModelService_ServiceName,
	HandlerType: (*ModelServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Complete",
			Handler:    _ModelService_Complete_Handler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "segmenter/v1/model.proto",
}
// #endregion server-stub

package grpc

// Service definition for taxrisk.v1.TaxRiskService. Messages are plain Go structs
// carried by the JSON codec below; clients select it with the "json" content subtype.

import (
	"context"
	"encoding/json"

	grpclib "google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/encoding"
	"google.golang.org/grpc/status"
)

// CodecName is the gRPC content subtype for JSON-encoded messages.
const CodecName = "json"

// JSONCodec marshals gRPC messages as JSON.
type JSONCodec struct{}

func (JSONCodec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (JSONCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }
func (JSONCodec) Name() string                       { return CodecName }

func init() {
	encoding.RegisterCodec(JSONCodec{})
}

// Full method names, used by interceptors and clients.
const (
	ServiceName        = "taxrisk.v1.TaxRiskService"
	MethodScoreFiling  = "/" + ServiceName + "/ScoreFiling"
	MethodGetVerdict   = "/" + ServiceName + "/GetVerdict"
	MethodListVerdicts = "/" + ServiceName + "/ListVerdicts"
)

// TaxRiskServiceServer is the server API for TaxRiskService.
type TaxRiskServiceServer interface {
	ScoreFiling(context.Context, *ScoreFilingRequest) (*ScoreFilingResponse, error)
	GetVerdict(context.Context, *GetVerdictRequest) (*GetVerdictResponse, error)
	ListVerdicts(context.Context, *ListVerdictsRequest) (*ListVerdictsResponse, error)
	mustEmbedUnimplementedTaxRiskServiceServer()
}

// UnimplementedTaxRiskServiceServer provides forward-compatible default implementations.
type UnimplementedTaxRiskServiceServer struct{}

func (UnimplementedTaxRiskServiceServer) ScoreFiling(context.Context, *ScoreFilingRequest) (*ScoreFilingResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method ScoreFiling not implemented")
}
func (UnimplementedTaxRiskServiceServer) GetVerdict(context.Context, *GetVerdictRequest) (*GetVerdictResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method GetVerdict not implemented")
}
func (UnimplementedTaxRiskServiceServer) ListVerdicts(context.Context, *ListVerdictsRequest) (*ListVerdictsResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method ListVerdicts not implemented")
}
func (UnimplementedTaxRiskServiceServer) mustEmbedUnimplementedTaxRiskServiceServer() {}

// RegisterTaxRiskServiceServer registers srv with the gRPC server.
func RegisterTaxRiskServiceServer(s grpclib.ServiceRegistrar, srv TaxRiskServiceServer) {
	s.RegisterService(&taxRiskServiceDesc, srv)
}

var taxRiskServiceDesc = grpclib.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*TaxRiskServiceServer)(nil),
	Methods: []grpclib.MethodDesc{
		{MethodName: "ScoreFiling", Handler: scoreFilingHandler},
		{MethodName: "GetVerdict", Handler: getVerdictHandler},
		{MethodName: "ListVerdicts", Handler: listVerdictsHandler},
	},
	Streams:  []grpclib.StreamDesc{},
	Metadata: "taxrisk/v1/taxrisk.proto",
}

func scoreFilingHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpclib.UnaryServerInterceptor) (interface{}, error) {
	req := new(ScoreFilingRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	call := func(ctx context.Context, r interface{}) (interface{}, error) {
		return srv.(TaxRiskServiceServer).ScoreFiling(ctx, r.(*ScoreFilingRequest))
	}
	if interceptor == nil {
		return call(ctx, req)
	}
	return interceptor(ctx, req, &grpclib.UnaryServerInfo{Server: srv, FullMethod: MethodScoreFiling}, call)
}

func getVerdictHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpclib.UnaryServerInterceptor) (interface{}, error) {
	req := new(GetVerdictRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	call := func(ctx context.Context, r interface{}) (interface{}, error) {
		return srv.(TaxRiskServiceServer).GetVerdict(ctx, r.(*GetVerdictRequest))
	}
	if interceptor == nil {
		return call(ctx, req)
	}
	return interceptor(ctx, req, &grpclib.UnaryServerInfo{Server: srv, FullMethod: MethodGetVerdict}, call)
}

func listVerdictsHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpclib.UnaryServerInterceptor) (interface{}, error) {
	req := new(ListVerdictsRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	call := func(ctx context.Context, r interface{}) (interface{}, error) {
		return srv.(TaxRiskServiceServer).ListVerdicts(ctx, r.(*ListVerdictsRequest))
	}
	if interceptor == nil {
		return call(ctx, req)
	}
	return interceptor(ctx, req, &grpclib.UnaryServerInfo{Server: srv, FullMethod: MethodListVerdicts}, call)
}

// TaxRiskServiceClient is the client API for TaxRiskService.
type TaxRiskServiceClient struct {
	cc grpclib.ClientConnInterface
}

// NewTaxRiskServiceClient wraps a connection. Calls use the JSON codec.
func NewTaxRiskServiceClient(cc grpclib.ClientConnInterface) *TaxRiskServiceClient {
	return &TaxRiskServiceClient{cc: cc}
}

func (c *TaxRiskServiceClient) ScoreFiling(ctx context.Context, in *ScoreFilingRequest, opts ...grpclib.CallOption) (*ScoreFilingResponse, error) {
	out := new(ScoreFilingResponse)
	if err := c.cc.Invoke(ctx, MethodScoreFiling, in, out, append(opts, grpclib.CallContentSubtype(CodecName))...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *TaxRiskServiceClient) GetVerdict(ctx context.Context, in *GetVerdictRequest, opts ...grpclib.CallOption) (*GetVerdictResponse, error) {
	out := new(GetVerdictResponse)
	if err := c.cc.Invoke(ctx, MethodGetVerdict, in, out, append(opts, grpclib.CallContentSubtype(CodecName))...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *TaxRiskServiceClient) ListVerdicts(ctx context.Context, in *ListVerdictsRequest, opts ...grpclib.CallOption) (*ListVerdictsResponse, error) {
	out := new(ListVerdictsResponse)
	if err := c.cc.Invoke(ctx, MethodListVerdicts, in, out, append(opts, grpclib.CallContentSubtype(CodecName))...); err != nil {
		return nil, err
	}
	return out, nil
}

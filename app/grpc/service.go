package grpc

import (
	"context"

	"github.com/vibast-solutions/ms-go-lesson-payments/app/types"
	"google.golang.org/grpc"
)

const ServiceName = "lessonpayments.PaymentsService"

// PaymentsServiceServer is served over the json codec; messages are the HTTP DTOs.
type PaymentsServiceServer interface {
	Health(context.Context, *types.HealthRequest) (*types.HealthResponse, error)
	CreatePurchaseIntent(context.Context, *types.CreatePurchaseIntentRequest) (*types.CreatePurchaseIntentResponse, error)
	GetPurchase(context.Context, *types.GetPurchaseRequest) (*types.PurchaseResponse, error)
	PreCheck(context.Context, *types.PreCheckRequest) (*types.NotificationResponse, error)
	Complete(context.Context, *types.CompleteRequest) (*types.NotificationResponse, error)
	ValidatePromoCode(context.Context, *types.ValidatePromoCodeRequest) (*types.ValidatePromoCodeResponse, error)
	CreateWithdrawRequest(context.Context, *types.CreateWithdrawRequestRequest) (*types.WithdrawRequestResponse, error)
	DailyRevenue(context.Context, *types.DailyRevenueRequest) (*types.RevenueResponse, error)
	MonthlyRevenue(context.Context, *types.MonthlyRevenueRequest) (*types.RevenueResponse, error)
}

var PaymentsServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*PaymentsServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Health", Handler: unaryHandler("Health", PaymentsServiceServer.Health)},
		{MethodName: "CreatePurchaseIntent", Handler: unaryHandler("CreatePurchaseIntent", PaymentsServiceServer.CreatePurchaseIntent)},
		{MethodName: "GetPurchase", Handler: unaryHandler("GetPurchase", PaymentsServiceServer.GetPurchase)},
		{MethodName: "PreCheck", Handler: unaryHandler("PreCheck", PaymentsServiceServer.PreCheck)},
		{MethodName: "Complete", Handler: unaryHandler("Complete", PaymentsServiceServer.Complete)},
		{MethodName: "ValidatePromoCode", Handler: unaryHandler("ValidatePromoCode", PaymentsServiceServer.ValidatePromoCode)},
		{MethodName: "CreateWithdrawRequest", Handler: unaryHandler("CreateWithdrawRequest", PaymentsServiceServer.CreateWithdrawRequest)},
		{MethodName: "DailyRevenue", Handler: unaryHandler("DailyRevenue", PaymentsServiceServer.DailyRevenue)},
		{MethodName: "MonthlyRevenue", Handler: unaryHandler("MonthlyRevenue", PaymentsServiceServer.MonthlyRevenue)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "lessonpayments",
}

func RegisterPaymentsServiceServer(s grpc.ServiceRegistrar, srv PaymentsServiceServer) {
	s.RegisterService(&PaymentsServiceDesc, srv)
}

func fullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

func unaryHandler[Req any, Resp any](method string, call func(PaymentsServiceServer, context.Context, *Req) (*Resp, error)) grpc.MethodHandler {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(PaymentsServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(method)}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(PaymentsServiceServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// PaymentsServiceClient calls the service with the json codec forced on every call.
type PaymentsServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewPaymentsServiceClient(cc grpc.ClientConnInterface) *PaymentsServiceClient {
	return &PaymentsServiceClient{cc: cc}
}

func (c *PaymentsServiceClient) Health(ctx context.Context, in *types.HealthRequest, opts ...grpc.CallOption) (*types.HealthResponse, error) {
	out := new(types.HealthResponse)
	if err := c.invoke(ctx, "Health", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *PaymentsServiceClient) CreatePurchaseIntent(ctx context.Context, in *types.CreatePurchaseIntentRequest, opts ...grpc.CallOption) (*types.CreatePurchaseIntentResponse, error) {
	out := new(types.CreatePurchaseIntentResponse)
	if err := c.invoke(ctx, "CreatePurchaseIntent", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *PaymentsServiceClient) GetPurchase(ctx context.Context, in *types.GetPurchaseRequest, opts ...grpc.CallOption) (*types.PurchaseResponse, error) {
	out := new(types.PurchaseResponse)
	if err := c.invoke(ctx, "GetPurchase", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *PaymentsServiceClient) PreCheck(ctx context.Context, in *types.PreCheckRequest, opts ...grpc.CallOption) (*types.NotificationResponse, error) {
	out := new(types.NotificationResponse)
	if err := c.invoke(ctx, "PreCheck", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *PaymentsServiceClient) Complete(ctx context.Context, in *types.CompleteRequest, opts ...grpc.CallOption) (*types.NotificationResponse, error) {
	out := new(types.NotificationResponse)
	if err := c.invoke(ctx, "Complete", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *PaymentsServiceClient) ValidatePromoCode(ctx context.Context, in *types.ValidatePromoCodeRequest, opts ...grpc.CallOption) (*types.ValidatePromoCodeResponse, error) {
	out := new(types.ValidatePromoCodeResponse)
	if err := c.invoke(ctx, "ValidatePromoCode", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *PaymentsServiceClient) CreateWithdrawRequest(ctx context.Context, in *types.CreateWithdrawRequestRequest, opts ...grpc.CallOption) (*types.WithdrawRequestResponse, error) {
	out := new(types.WithdrawRequestResponse)
	if err := c.invoke(ctx, "CreateWithdrawRequest", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *PaymentsServiceClient) DailyRevenue(ctx context.Context, in *types.DailyRevenueRequest, opts ...grpc.CallOption) (*types.RevenueResponse, error) {
	out := new(types.RevenueResponse)
	if err := c.invoke(ctx, "DailyRevenue", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *PaymentsServiceClient) MonthlyRevenue(ctx context.Context, in *types.MonthlyRevenueRequest, opts ...grpc.CallOption) (*types.RevenueResponse, error) {
	out := new(types.RevenueResponse)
	if err := c.invoke(ctx, "MonthlyRevenue", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *PaymentsServiceClient) invoke(ctx context.Context, method string, in, out interface{}, opts []grpc.CallOption) error {
	callOpts := append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	return c.cc.Invoke(ctx, fullMethod(method), in, out, callOpts...)
}

package grpc

import (
	"context"
	"errors"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/dmitrijs2005/boostauth/internal/common"
	"github.com/dmitrijs2005/boostauth/internal/server/models"
)

const (
	sessionServiceName = "boostauth.v1.Session"
	whoAmIFullMethod   = "/" + sessionServiceName + "/WhoAmI"
)

type sessionService interface {
	WhoAmI(context.Context, *emptypb.Empty) (*structpb.Struct, error)
}

var sessionServiceDesc = grpc.ServiceDesc{
	ServiceName: sessionServiceName,
	HandlerType: (*sessionService)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "WhoAmI", Handler: whoAmIHandler},
	},
	Streams: []grpc.StreamDesc{},
}

func whoAmIHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(sessionService).WhoAmI(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: whoAmIFullMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(sessionService).WhoAmI(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

type sessionServer struct {
	auth AuthService
}

// WhoAmI returns the account behind the caller's bearer token.
func (s *sessionServer) WhoAmI(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	if _, ok := AccountIDFromContext(ctx); !ok {
		return nil, status.Error(codes.Unauthenticated, common.ErrUnauthenticated.Error())
	}

	account, err := s.auth.CurrentAccount(ctx, tokenFromContext(ctx))
	if err != nil {
		return nil, toStatus(err)
	}

	out, err := structpb.NewStruct(accountFields(account))
	if err != nil {
		return nil, status.Error(codes.Internal, common.ErrorInternal.Error())
	}
	return out, nil
}

func accountFields(a *models.Account) map[string]any {
	fields := map[string]any{
		"id":         a.ID,
		"email":      a.Email,
		"name":       nil,
		"phone":      nil,
		"created_at": a.CreatedAt.UTC().Format(time.RFC3339),
	}
	if a.Name != nil {
		fields["name"] = *a.Name
	}
	if a.Phone != nil {
		fields["phone"] = *a.Phone
	}
	return fields
}

func toStatus(err error) error {
	switch {
	case errors.Is(err, common.ErrUnauthenticated):
		return status.Error(codes.Unauthenticated, common.ErrUnauthenticated.Error())
	case errors.Is(err, common.ErrStoreUnavailable):
		return status.Error(codes.Unavailable, common.ErrStoreUnavailable.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		return status.Error(codes.Internal, common.ErrorInternal.Error())
	}
}

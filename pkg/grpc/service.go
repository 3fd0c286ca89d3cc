package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	ServiceName = "sos.docstore.v1.DocumentStore"

	MethodAdd   = "/" + ServiceName + "/Add"
	MethodSet   = "/" + ServiceName + "/Set"
	MethodGet   = "/" + ServiceName + "/Get"
	MethodWatch = "/" + ServiceName + "/Watch"
)

// DocumentStoreServer is the server API of the document store service.
// Every message is a google.protobuf.Struct:
//
//	Add   {collection, document}             -> {id}
//	Set   {collection, id, document, merge}  -> {}
//	Get   {collection, id}                   -> {document}
//	Watch {collection, field, value, order_by, descending} -> stream {documents}
type DocumentStoreServer interface {
	Add(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	Set(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	Get(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	Watch(req *structpb.Struct, stream grpc.ServerStream) error
}

func RegisterDocumentStoreServer(s grpc.ServiceRegistrar, srv DocumentStoreServer) {
	s.RegisterService(&DocumentStoreServiceDesc, srv)
}

func unaryHandler(method string, call func(DocumentStoreServer, context.Context, *structpb.Struct) (*structpb.Struct, error)) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(DocumentStoreServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: method}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(DocumentStoreServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

func watchHandler(srv any, stream grpc.ServerStream) error {
	in := new(structpb.Struct)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(DocumentStoreServer).Watch(in, stream)
}

var DocumentStoreServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*DocumentStoreServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Add",
			Handler:    unaryHandler(MethodAdd, DocumentStoreServer.Add),
		},
		{
			MethodName: "Set",
			Handler:    unaryHandler(MethodSet, DocumentStoreServer.Set),
		},
		{
			MethodName: "Get",
			Handler:    unaryHandler(MethodGet, DocumentStoreServer.Get),
		},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Watch",
			Handler:       watchHandler,
			ServerStreams: true,
		},
	},
	Metadata: "sos/docstore/v1/docstore.proto",
}

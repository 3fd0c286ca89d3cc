package grpc

import (
	"context"

	z "github.com/Oudwins/zog"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"liyu1981.xyz/sos-safety-service/pkg/common"
)

var knownCollections = []string{
	common.CollectionUsers,
	common.CollectionSosEvents,
	common.CollectionCommunityAlerts,
	common.CollectionLocations,
	common.CollectionInvitations,
}

func validateCollection(collection *string) z.ZogIssueList {
	var collectionValidator = z.String().Required().OneOf(knownCollections)
	return collectionValidator.Validate(collection)
}

func validateDocumentID(id *string) z.ZogIssueList {
	var idValidator = z.String().Min(1).Max(128).Required()
	return idValidator.Validate(id)
}

func invalid(issues z.ZogIssueList) error {
	return status.Errorf(codes.InvalidArgument, "validation error: %v", issues)
}

func (s *DocstoreServer) Add(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	collection := stringField(req, keyCollection)
	if issues := validateCollection(&collection); issues != nil {
		return nil, invalid(issues)
	}
	doc, ok := documentField(req, keyDocument)
	if !ok {
		return nil, status.Error(codes.InvalidArgument, "validation error: document is required")
	}

	id, err := s.Store.Add(ctx, collection, doc)
	if err != nil {
		return nil, statusFromError(err)
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		keyID: structpb.NewStringValue(id),
	}}, nil
}

func (s *DocstoreServer) Set(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	collection := stringField(req, keyCollection)
	if issues := validateCollection(&collection); issues != nil {
		return nil, invalid(issues)
	}
	id := stringField(req, keyID)
	if issues := validateDocumentID(&id); issues != nil {
		return nil, invalid(issues)
	}
	doc, ok := documentField(req, keyDocument)
	if !ok {
		return nil, status.Error(codes.InvalidArgument, "validation error: document is required")
	}

	if err := s.Store.Set(ctx, collection, id, doc, boolField(req, keyMerge)); err != nil {
		return nil, statusFromError(err)
	}
	return &structpb.Struct{}, nil
}

func (s *DocstoreServer) Get(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	collection := stringField(req, keyCollection)
	if issues := validateCollection(&collection); issues != nil {
		return nil, invalid(issues)
	}
	id := stringField(req, keyID)
	if issues := validateDocumentID(&id); issues != nil {
		return nil, invalid(issues)
	}

	doc, err := s.Store.Get(ctx, collection, id)
	if err != nil {
		return nil, statusFromError(err)
	}
	out, err := toStruct(doc)
	if err != nil {
		return nil, statusFromError(err)
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		keyDocument: structpb.NewStructValue(out),
	}}, nil
}

func (s *DocstoreServer) Watch(req *structpb.Struct, stream grpc.ServerStream) error {
	q := queryFromStruct(req)
	if issues := validateCollection(&q.Collection); issues != nil {
		return invalid(issues)
	}

	logger := common.GetLoggerWith(common.LoggerNameGrpcServer)
	ctx := stream.Context()
	snapshots, err := s.Store.Watch(ctx, q)
	if err != nil {
		return statusFromError(err)
	}

	logger.Info("Watch started", zap.String("collection", q.Collection), zap.String("field", q.Field))
	for docs := range snapshots {
		msg, err := documentsToStruct(docs)
		if err != nil {
			return statusFromError(err)
		}
		if err := stream.SendMsg(msg); err != nil {
			return err
		}
	}
	logger.Info("Watch ended", zap.String("collection", q.Collection))
	return nil
}

package grpc

import (
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"liyu1981.xyz/sos-safety-service/pkg/remote"
)

const (
	keyCollection = "collection"
	keyID         = "id"
	keyDocument   = "document"
	keyDocuments  = "documents"
	keyMerge      = "merge"
	keyField      = "field"
	keyValue      = "value"
	keyOrderBy    = "order_by"
	keyDescending = "descending"
)

func stringField(s *structpb.Struct, key string) string {
	return s.GetFields()[key].GetStringValue()
}

func boolField(s *structpb.Struct, key string) bool {
	return s.GetFields()[key].GetBoolValue()
}

func documentField(s *structpb.Struct, key string) (remote.Document, bool) {
	v, ok := s.GetFields()[key]
	if !ok || v.GetStructValue() == nil {
		return nil, false
	}
	return remote.Document(v.GetStructValue().AsMap()), true
}

func toStruct(doc remote.Document) (*structpb.Struct, error) {
	normalized, err := remote.Normalize(doc)
	if err != nil {
		return nil, err
	}
	s, err := structpb.NewStruct(normalized)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", remote.ErrInvalidDocument, err)
	}
	return s, nil
}

func queryToStruct(q remote.Query) *structpb.Struct {
	value, err := structpb.NewValue(q.Value)
	if err != nil {
		// non JSON-native values compare by their string form
		value = structpb.NewStringValue(fmt.Sprint(q.Value))
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		keyCollection: structpb.NewStringValue(q.Collection),
		keyField:      structpb.NewStringValue(q.Field),
		keyValue:      value,
		keyOrderBy:    structpb.NewStringValue(q.OrderBy),
		keyDescending: structpb.NewBoolValue(q.Descending),
	}}
}

func queryFromStruct(s *structpb.Struct) remote.Query {
	var value any
	if v, ok := s.GetFields()[keyValue]; ok {
		value = v.AsInterface()
	}
	return remote.Query{
		Collection: stringField(s, keyCollection),
		Field:      stringField(s, keyField),
		Value:      value,
		OrderBy:    stringField(s, keyOrderBy),
		Descending: boolField(s, keyDescending),
	}
}

func documentsToStruct(docs []remote.Document) (*structpb.Struct, error) {
	list := make([]any, 0, len(docs))
	for _, d := range docs {
		normalized, err := remote.Normalize(d)
		if err != nil {
			return nil, err
		}
		list = append(list, map[string]any(normalized))
	}
	s, err := structpb.NewStruct(map[string]any{keyDocuments: list})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", remote.ErrInvalidDocument, err)
	}
	return s, nil
}

func documentsFromStruct(s *structpb.Struct) []remote.Document {
	values := s.GetFields()[keyDocuments].GetListValue().GetValues()
	docs := make([]remote.Document, 0, len(values))
	for _, v := range values {
		if st := v.GetStructValue(); st != nil {
			docs = append(docs, remote.Document(st.AsMap()))
		}
	}
	return docs
}

// statusFromError maps store errors onto gRPC status codes.
func statusFromError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	switch {
	case errors.Is(err, remote.ErrDocumentNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, remote.ErrInvalidDocument):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, remote.ErrAuth):
		return status.Error(codes.PermissionDenied, err.Error())
	case errors.Is(err, remote.ErrNetwork):
		return status.Error(codes.Unavailable, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

// errorFromStatus maps a gRPC failure back onto the store errors.
func errorFromStatus(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return fmt.Errorf("%w: %v", remote.ErrNetwork, err)
	}
	switch st.Code() {
	case codes.NotFound:
		return fmt.Errorf("%w: %s", remote.ErrDocumentNotFound, st.Message())
	case codes.InvalidArgument:
		return fmt.Errorf("%w: %s", remote.ErrInvalidDocument, st.Message())
	case codes.Unauthenticated, codes.PermissionDenied:
		return fmt.Errorf("%w: %s", remote.ErrAuth, st.Message())
	case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted:
		return fmt.Errorf("%w: %s", remote.ErrNetwork, st.Message())
	case codes.Canceled:
		return fmt.Errorf("%w: %s", remote.ErrNetwork, st.Message())
	default:
		return fmt.Errorf("%w: %s", remote.ErrRemote, st.Message())
	}
}

package grpc

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"liyu1981.xyz/sos-safety-service/pkg/common"
	"liyu1981.xyz/sos-safety-service/pkg/remote"
)

// Client is a remote.Store backed by the gRPC document store service.
type Client struct {
	conn     *grpc.ClientConn
	clientID string
}

var _ remote.Store = (*Client)(nil)

func Dial(addr, clientID string, opts ...grpc.DialOption) (*Client, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", remote.ErrNetwork, err)
	}
	return NewClient(conn, clientID), nil
}

func NewClient(conn *grpc.ClientConn, clientID string) *Client {
	return &Client{conn: conn, clientID: clientID}
}

func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) outgoing(ctx context.Context) context.Context {
	if c.clientID == "" {
		return ctx
	}
	return metadata.AppendToOutgoingContext(ctx, MetadataClientID, c.clientID)
}

func (c *Client) Add(ctx context.Context, collection string, doc remote.Document) (string, error) {
	body, err := toStruct(doc)
	if err != nil {
		return "", err
	}
	req := &structpb.Struct{Fields: map[string]*structpb.Value{
		keyCollection: structpb.NewStringValue(collection),
		keyDocument:   structpb.NewStructValue(body),
	}}
	out := new(structpb.Struct)
	if err := c.conn.Invoke(c.outgoing(ctx), MethodAdd, req, out); err != nil {
		return "", errorFromStatus(err)
	}
	return stringField(out, keyID), nil
}

func (c *Client) Set(ctx context.Context, collection, id string, doc remote.Document, merge bool) error {
	body, err := toStruct(doc)
	if err != nil {
		return err
	}
	req := &structpb.Struct{Fields: map[string]*structpb.Value{
		keyCollection: structpb.NewStringValue(collection),
		keyID:         structpb.NewStringValue(id),
		keyDocument:   structpb.NewStructValue(body),
		keyMerge:      structpb.NewBoolValue(merge),
	}}
	if err := c.conn.Invoke(c.outgoing(ctx), MethodSet, req, new(structpb.Struct)); err != nil {
		return errorFromStatus(err)
	}
	return nil
}

func (c *Client) Get(ctx context.Context, collection, id string) (remote.Document, error) {
	req := &structpb.Struct{Fields: map[string]*structpb.Value{
		keyCollection: structpb.NewStringValue(collection),
		keyID:         structpb.NewStringValue(id),
	}}
	out := new(structpb.Struct)
	if err := c.conn.Invoke(c.outgoing(ctx), MethodGet, req, out); err != nil {
		return nil, errorFromStatus(err)
	}
	doc, ok := documentField(out, keyDocument)
	if !ok {
		return nil, fmt.Errorf("%w: empty response", remote.ErrInvalidDocument)
	}
	return doc, nil
}

// Watch opens a server stream and forwards every snapshot. The channel
// closes when ctx is done or the stream breaks.
func (c *Client) Watch(ctx context.Context, q remote.Query) (<-chan []remote.Document, error) {
	stream, err := c.conn.NewStream(c.outgoing(ctx), &DocumentStoreServiceDesc.Streams[0], MethodWatch)
	if err != nil {
		return nil, errorFromStatus(err)
	}
	if err := stream.SendMsg(queryToStruct(q)); err != nil {
		return nil, errorFromStatus(err)
	}
	if err := stream.CloseSend(); err != nil {
		return nil, errorFromStatus(err)
	}

	logger := common.GetCategoryLogger(common.LoggerNameSosCore, common.LoggerCategorySosRemote)
	out := make(chan []remote.Document, 1)
	go func() {
		defer close(out)
		for {
			msg := new(structpb.Struct)
			if err := stream.RecvMsg(msg); err != nil {
				if !errors.Is(err, io.EOF) && status.Code(err) != codes.Canceled {
					logger.Warn("Watch stream ended", zap.String("collection", q.Collection), zap.Error(errorFromStatus(err)))
				}
				return
			}
			docs := documentsFromStruct(msg)
			select {
			case out <- docs:
			default:
				// keep only the newest snapshot
				select {
				case <-out:
				default:
				}
				select {
				case out <- docs:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

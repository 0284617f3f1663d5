package grpcserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/marmistrz/ipu6-camera-hal/internal/aiq"
	"github.com/marmistrz/ipu6-camera-hal/internal/pipeline"
)

// TranslatorService serves the pipeline over gRPC.
type TranslatorService struct {
	pipeline *pipeline.Pipeline
	log      *slog.Logger
}

// NewTranslatorService returns a service backed by pipe.
func NewTranslatorService(pipe *pipeline.Pipeline, log *slog.Logger) *TranslatorService {
	if log == nil {
		log = slog.Default()
	}
	return &TranslatorService{pipeline: pipe, log: log}
}

// RegisterWithServer registers this service with a gRPC server.
func (s *TranslatorService) RegisterWithServer(grpcServer *grpc.Server) {
	RegisterTranslatorServer(grpcServer, s)
}

// Start listens on addr and serves until ctx is done.
func (s *TranslatorService) Start(ctx context.Context, addr string) error {
	listen, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	return s.Serve(ctx, listen)
}

// Serve serves on lis until ctx is done, then stops gracefully.
func (s *TranslatorService) Serve(ctx context.Context, lis net.Listener) error {
	grpcServer := grpc.NewServer(
		grpc.MaxRecvMsgSize(4*1024*1024),
		grpc.UnaryInterceptor(s.logCalls),
	)
	s.RegisterWithServer(grpcServer)

	go func() {
		<-ctx.Done()
		s.log.Info("shutting down grpc server")
		grpcServer.GracefulStop()
	}()

	s.log.Info("grpc server starting", "addr", lis.Addr().String())
	if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return err
	}
	return nil
}

func (s *TranslatorService) logCalls(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	resp, err := handler(ctx, req)
	if err != nil {
		s.log.Warn("grpc call failed", "method", info.FullMethod, "code", status.Code(err), "error", err)
	} else {
		s.log.Debug("grpc call", "method", info.FullMethod)
	}
	return resp, err
}

// SubmitFrame implements TranslatorServer.
func (s *TranslatorService) SubmitFrame(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var frame pipeline.Frame
	if err := fromStruct(in, &frame); err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "decode frame: %v", err)
	}
	res, err := s.pipeline.Do(ctx, frame)
	if err != nil {
		return nil, toStatus(err)
	}
	return toStruct(res)
}

// GetParams implements TranslatorServer.
func (s *TranslatorService) GetParams(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req struct {
		CameraID *int `json:"camera_id"`
	}
	if err := fromStruct(in, &req); err != nil || req.CameraID == nil {
		return nil, status.Error(codes.InvalidArgument, "camera_id is required")
	}
	snap, ok := s.pipeline.Latest(*req.CameraID)
	if !ok {
		return nil, status.Errorf(codes.NotFound, "camera %d has not translated a frame", *req.CameraID)
	}
	return toStruct(snap)
}

func toStatus(err error) error {
	switch {
	case errors.Is(err, aiq.ErrInvalidArgument):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, pipeline.ErrQueueFull), errors.Is(err, pipeline.ErrStopped):
		return status.Error(codes.Unavailable, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return status.FromContextError(err).Err()
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

// fromStruct decodes a Struct through its JSON form, so the json tags of v
// apply.
func fromStruct(in *structpb.Struct, v any) error {
	if in == nil {
		in = &structpb.Struct{}
	}
	data, err := in.MarshalJSON()
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

// ToStruct converts a JSON-encodable value to a Struct.
func ToStruct(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	out := &structpb.Struct{}
	if err := out.UnmarshalJSON(data); err != nil {
		return nil, err
	}
	return out, nil
}

// FromStruct decodes a Struct into v using v's json tags.
func FromStruct(in *structpb.Struct, v any) error {
	return fromStruct(in, v)
}

func toStruct(v any) (*structpb.Struct, error) {
	out, err := ToStruct(v)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode reply: %v", err)
	}
	return out, nil
}

package server

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	corev3 "github.com/envoyproxy/go-control-plane/envoy/config/core/v3"
	extproc "github.com/envoyproxy/go-control-plane/envoy/service/ext_proc/v3"
	typev3 "github.com/envoyproxy/go-control-plane/envoy/type/v3"

	"github.com/DinoChiesa/Apigee-Sample-Jwt-Bearer-Token-Exchange/internal/groom"
)

// GroomFunc rewrites a response body and reports whether it changed it.
type GroomFunc func(body []byte) ([]byte, bool, error)

// Server is an Envoy external processor that grooms token endpoint
// responses. Envoy must send the response body in BUFFERED mode.
type Server struct {
	extproc.UnimplementedExternalProcessorServer

	logger *slog.Logger
	groom  GroomFunc
}

func NewServer(logger *slog.Logger) *Server {
	return &Server{
		logger: logger,
		groom:  groom.Groom,
	}
}

func (svr *Server) Process(stream extproc.ExternalProcessor_ProcessServer) error {
	logger := svr.logger.With(slog.String("method", "Process"))

	for {
		req, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		resp, err := svr.handle(logger, req)
		if err != nil {
			return err
		}
		if err := stream.Send(resp); err != nil {
			return err
		}
	}
}

func (svr *Server) handle(logger *slog.Logger, req *extproc.ProcessingRequest) (*extproc.ProcessingResponse, error) {
	switch v := req.Request.(type) {
	case *extproc.ProcessingRequest_RequestHeaders:
		return &extproc.ProcessingResponse{
			Response: &extproc.ProcessingResponse_RequestHeaders{RequestHeaders: &extproc.HeadersResponse{}},
		}, nil
	case *extproc.ProcessingRequest_RequestBody:
		return &extproc.ProcessingResponse{
			Response: &extproc.ProcessingResponse_RequestBody{RequestBody: &extproc.BodyResponse{}},
		}, nil
	case *extproc.ProcessingRequest_RequestTrailers:
		return &extproc.ProcessingResponse{
			Response: &extproc.ProcessingResponse_RequestTrailers{RequestTrailers: &extproc.TrailersResponse{}},
		}, nil
	case *extproc.ProcessingRequest_ResponseHeaders:
		// The groomed body has a different length.
		return &extproc.ProcessingResponse{
			Response: &extproc.ProcessingResponse_ResponseHeaders{
				ResponseHeaders: &extproc.HeadersResponse{
					Response: &extproc.CommonResponse{
						HeaderMutation: &extproc.HeaderMutation{
							RemoveHeaders: []string{"content-length"},
						},
					},
				},
			},
		}, nil
	case *extproc.ProcessingRequest_ResponseBody:
		return svr.handleResponseBody(logger, v.ResponseBody), nil
	case *extproc.ProcessingRequest_ResponseTrailers:
		return &extproc.ProcessingResponse{
			Response: &extproc.ProcessingResponse_ResponseTrailers{ResponseTrailers: &extproc.TrailersResponse{}},
		}, nil
	default:
		return nil, fmt.Errorf("unsupported request type: %T", v)
	}
}

func (svr *Server) handleResponseBody(logger *slog.Logger, body *extproc.HttpBody) *extproc.ProcessingResponse {
	out, groomed, err := svr.groom(body.GetBody())
	if err != nil {
		logger.Error("failed to groom response", slog.Any("error", err))
		return groomFailure()
	}

	common := &extproc.CommonResponse{}
	if groomed {
		logger.Info("groomed token response", slog.Int("bytes", len(out)))
		common.BodyMutation = &extproc.BodyMutation{
			Mutation: &extproc.BodyMutation_Body{Body: out},
		}
	}
	return &extproc.ProcessingResponse{
		Response: &extproc.ProcessingResponse_ResponseBody{
			ResponseBody: &extproc.BodyResponse{Response: common},
		},
	}
}

func groomFailure() *extproc.ProcessingResponse {
	headers := &extproc.HeaderMutation{
		SetHeaders: []*corev3.HeaderValueOption{
			{Header: &corev3.HeaderValue{Key: "content-type", RawValue: []byte("application/json")}},
		},
	}
	return &extproc.ProcessingResponse{
		Response: &extproc.ProcessingResponse_ImmediateResponse{
			ImmediateResponse: &extproc.ImmediateResponse{
				Status:  &typev3.HttpStatus{Code: typev3.StatusCode_InternalServerError},
				Headers: headers,
				Body:    `{"error":"server_error","error_description":"failed to process token response"}`,
				Details: "groom_failed",
			},
		},
	}
}

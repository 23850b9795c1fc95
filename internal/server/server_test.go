package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"testing"

	extproc "github.com/envoyproxy/go-control-plane/envoy/service/ext_proc/v3"
	typev3 "github.com/envoyproxy/go-control-plane/envoy/type/v3"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/proto"
)

func startServer(t *testing.T, svr *Server) extproc.ExternalProcessorClient {
	t.Helper()

	listener := bufconn.Listen(1 << 20)
	grpcServer := grpc.NewServer()
	extproc.RegisterExternalProcessorServer(grpcServer, svr)
	go func() {
		_ = grpcServer.Serve(listener)
	}()
	t.Cleanup(grpcServer.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return listener.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return extproc.NewExternalProcessorClient(conn)
}

func roundTrip(t *testing.T, stream extproc.ExternalProcessor_ProcessClient, req *extproc.ProcessingRequest) *extproc.ProcessingResponse {
	t.Helper()
	require.NoError(t, stream.Send(req))
	resp, err := stream.Recv()
	require.NoError(t, err)
	return resp
}

func TestServer_Process(t *testing.T) {
	t.Parallel()

	logger := slog.New(slog.DiscardHandler)

	t.Run("token response is groomed", func(t *testing.T) {
		client := startServer(t, NewServer(logger))
		stream, err := client.Process(context.Background())
		require.NoError(t, err)

		resp := roundTrip(t, stream, &extproc.ProcessingRequest{
			Request: &extproc.ProcessingRequest_RequestHeaders{RequestHeaders: &extproc.HttpHeaders{}},
		})
		require.True(t, proto.Equal(&extproc.ProcessingResponse{
			Response: &extproc.ProcessingResponse_RequestHeaders{RequestHeaders: &extproc.HeadersResponse{}},
		}, resp))

		resp = roundTrip(t, stream, &extproc.ProcessingRequest{
			Request: &extproc.ProcessingRequest_ResponseHeaders{ResponseHeaders: &extproc.HttpHeaders{}},
		})
		require.Equal(t, []string{"content-length"},
			resp.GetResponseHeaders().GetResponse().GetHeaderMutation().GetRemoveHeaders())

		resp = roundTrip(t, stream, &extproc.ProcessingRequest{
			Request: &extproc.ProcessingRequest_ResponseBody{ResponseBody: &extproc.HttpBody{
				Body:        []byte(`{"access_token":"X","issued_at":"1700000000000","expires_in":"300","api_product_list_json":["p1"]}`),
				EndOfStream: true,
			}},
		})
		body := resp.GetResponseBody().GetResponse().GetBodyMutation().GetBody()
		require.JSONEq(t, `{
			"access_token": "X",
			"issued_at": 1700000000000,
			"expires_in": 300,
			"api_products": ["p1"],
			"issued": "2023-11-14T22:13:20.000Z",
			"expires": "2023-11-14T22:18:20.000Z"
		}`, string(body))

		require.NoError(t, stream.CloseSend())
	})

	t.Run("error response passes through", func(t *testing.T) {
		client := startServer(t, NewServer(logger))
		stream, err := client.Process(context.Background())
		require.NoError(t, err)

		resp := roundTrip(t, stream, &extproc.ProcessingRequest{
			Request: &extproc.ProcessingRequest_ResponseBody{ResponseBody: &extproc.HttpBody{
				Body:        []byte(`{"error":"invalid_grant"}`),
				EndOfStream: true,
			}},
		})
		require.True(t, proto.Equal(&extproc.ProcessingResponse{
			Response: &extproc.ProcessingResponse_ResponseBody{
				ResponseBody: &extproc.BodyResponse{Response: &extproc.CommonResponse{}},
			},
		}, resp))
	})

	t.Run("groom failure becomes an immediate 500", func(t *testing.T) {
		svr := NewServer(logger)
		svr.groom = func([]byte) ([]byte, bool, error) { return nil, false, errors.New("boom") }
		client := startServer(t, svr)
		stream, err := client.Process(context.Background())
		require.NoError(t, err)

		resp := roundTrip(t, stream, &extproc.ProcessingRequest{
			Request: &extproc.ProcessingRequest_ResponseBody{ResponseBody: &extproc.HttpBody{Body: []byte(`{}`)}},
		})
		require.Equal(t, typev3.StatusCode_InternalServerError, resp.GetImmediateResponse().GetStatus().GetCode())
	})

	t.Run("trailers are acknowledged", func(t *testing.T) {
		client := startServer(t, NewServer(logger))
		stream, err := client.Process(context.Background())
		require.NoError(t, err)

		resp := roundTrip(t, stream, &extproc.ProcessingRequest{
			Request: &extproc.ProcessingRequest_ResponseTrailers{ResponseTrailers: &extproc.HttpTrailers{}},
		})
		require.NotNil(t, resp.GetResponseTrailers())
	})
}

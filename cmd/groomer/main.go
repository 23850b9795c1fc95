package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	extproc "github.com/envoyproxy/go-control-plane/envoy/service/ext_proc/v3"
	"google.golang.org/grpc"
	"google.golang.org/grpc/reflection"

	"github.com/DinoChiesa/Apigee-Sample-Jwt-Bearer-Token-Exchange/internal/server"
)

type CLI struct {
	Listen   string `default:":50051" help:"Address to serve the Envoy external processor on"`
	LogLevel string `name:"log-level" default:"info" enum:"debug,info,warn,error" help:"Logging level"`
}

func (cli *CLI) Run(ctx context.Context, logger *slog.Logger) error {
	grpcServer := grpc.NewServer()
	reflection.Register(grpcServer)
	extproc.RegisterExternalProcessorServer(grpcServer, server.NewServer(logger))

	listener, err := net.Listen("tcp", cli.Listen)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	defer listener.Close()

	go func() {
		logger.Info("serving on", slog.String("address", listener.Addr().String()))
		if err := grpcServer.Serve(listener); err != nil {
			logger.Error("failed to serve", slog.Any("error", err))
		}
	}()

	<-ctx.Done()
	grpcServer.GracefulStop()
	logger.Info("shutting down")
	return nil
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var cli CLI
	cliCtx := kong.Parse(&cli,
		kong.Name("groomer"),
		kong.Description("Envoy external processor that reshapes OAuth token responses."),
	)

	var level slog.Level
	_ = level.UnmarshalText([]byte(cli.LogLevel))
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	cliCtx.BindTo(ctx, (*context.Context)(nil))
	cliCtx.Bind(logger)

	if err := cliCtx.Run(); err != nil {
		logger.Error("failed to run CLI", slog.Any("error", err))
		os.Exit(1)
	}
}

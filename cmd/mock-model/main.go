// Command mock-model serves a deterministic ModelService over gRPC for local
// end-to-end runs of the segmenter.
package main

import (
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"

	"github.com/danielpatrickdp/query-coordinator/internal/codec"
	"github.com/danielpatrickdp/query-coordinator/internal/segment"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var (
		addr     string
		latency  time.Duration
		weakTier string
		rawTypes []string
	)

	cmd := &cobra.Command{
		Use:          "mock-model",
		Short:        "Serve canned structured model replies over gRPC",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			tier := segment.Tier(weakTier)
			if tier != "" && !tier.Valid() {
				return fmt.Errorf("unknown tier %q", weakTier)
			}
			model := &cannedModel{latency: latency, weakTier: tier, rawTypes: map[string]bool{}}
			for _, t := range rawTypes {
				model.rawTypes[strings.TrimSpace(t)] = true
			}
			return serve(addr, model)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", envOr("SEG_MODEL_ADDR", "localhost:50051"), "listen address")
	cmd.Flags().DurationVar(&latency, "latency", 0, "artificial delay per completion")
	cmd.Flags().StringVar(&weakTier, "weak-tier", "", "tier whose replies carry low-relevance results")
	cmd.Flags().StringSliceVar(&rawTypes, "raw", nil, "segment types answered in plain text")
	return cmd
}

func serve(addr string, model segment.ModelClient) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}

	srv := grpc.NewServer()
	codec.RegisterModelServiceServer(srv, codec.NewServer(model))

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		log.Println("[MOCK] shutting down")
		srv.GracefulStop()
	}()

	log.Printf("[MOCK] model service listening on %s", lis.Addr())
	return srv.Serve(lis)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

package main

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/sugawarayuuta/sonnet"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/cartridge/replay/internal/ingest"
	replayv1 "github.com/cartridge/replay/pkg/replayv1"
)

const maxLineSize = 16 * 1024 * 1024

func runPush(cmd *cobra.Command, args []string) error {
	if err := cfg.ValidateClient(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	logger := newLogger(cfg.LogLevel)

	var in io.Reader = cmd.InOrStdin()
	if len(args) == 1 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}

	conn, err := grpc.NewClient(cfg.ReplayAddr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return fmt.Errorf("failed to connect to replay at %s: %w", cfg.ReplayAddr, err)
	}
	defer conn.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	writer, err := ingest.NewWriter(replayv1.NewReplayClient(conn), ingest.Config{
		BatchSize:     cfg.BatchSize,
		FlushInterval: cfg.FlushInterval,
	}, logger)
	if err != nil {
		return err
	}
	go writer.Run(ctx)

	if err := pushLines(ctx, in, writer); err != nil {
		_ = writer.Close(context.Background())
		return err
	}
	if err := writer.Close(ctx); err != nil {
		return fmt.Errorf("final flush failed with %d transitions pending: %w", writer.Pending(), err)
	}

	logger.Info().Int("pushed", writer.Pushed()).Str("replay_addr", cfg.ReplayAddr).Msg("Push complete")
	return nil
}

// pushLines decodes one JSON transition per line and queues it on w.
func pushLines(ctx context.Context, in io.Reader, w *ingest.Writer) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	line := 0
	for scanner.Scan() {
		line++
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		var t replayv1.Transition
		if err := sonnet.Unmarshal(raw, &t); err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		if err := w.Add(ctx, &t); err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return scanner.Err()
}

package main

import (
	"context"
	"fmt"
	"io"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/cartridge/replay/internal/events"
	"github.com/cartridge/replay/internal/ingest"
	"github.com/cartridge/replay/internal/metrics"
	"github.com/cartridge/replay/internal/replay"
	"github.com/cartridge/replay/internal/service"
	replayv1 "github.com/cartridge/replay/pkg/replayv1"
)

func startServer(t *testing.T, buf replay.Buffer) *grpc.ClientConn {
	t.Helper()
	logger := zerolog.New(io.Discard)

	svc := service.NewReplayService(buf, events.NoopPublisher{}, metrics.NewCollector(prometheus.NewRegistry(), logger), logger)
	server := grpc.NewServer(grpc.ChainUnaryInterceptor(loggingInterceptor(logger)))
	replayv1.RegisterReplayServer(server, svc)
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(server, healthServer)
	healthServer.SetServingStatus(replayv1.ServiceName, healthpb.HealthCheckResponse_SERVING)

	lis := bufconn.Listen(1 << 20)
	go func() {
		_ = server.Serve(lis)
	}()
	t.Cleanup(server.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

// tictactoeLines renders n transitions as JSON lines: a 9 cell board plus the
// player to move, one action and the board after the move.
func tictactoeLines(n int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		cell := i % 9
		fmt.Fprintf(&b, `{"state":[0,0,0,0,0,0,0,0,0,1],"action":[%d],"reward":%d,"next_state":[0,0,0,0,0,0,0,0,0,2],"done":%t}`,
			cell, i, i%9 == 8)
		b.WriteString("\n")
		if i%4 == 0 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

func TestReplayServiceIntegration(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	buf, err := replay.NewPrioritized(16, 0.6, 0.4, replay.WithSeed(42))
	require.NoError(t, err)
	conn := startServer(t, buf)
	client := replayv1.NewReplayClient(conn)

	t.Run("Health", func(t *testing.T) {
		resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{Service: replayv1.ServiceName})
		require.NoError(t, err)
		assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.Status)
	})

	t.Run("PushLines", func(t *testing.T) {
		writer, err := ingest.NewWriter(client, ingest.Config{BatchSize: 4, FlushInterval: time.Hour}, zerolog.Nop())
		require.NoError(t, err)

		require.NoError(t, pushLines(ctx, strings.NewReader(tictactoeLines(10)), writer))
		require.NoError(t, writer.Close(ctx))
		assert.Equal(t, 10, writer.Pushed())
	})

	t.Run("PushBadLine", func(t *testing.T) {
		writer, err := ingest.NewWriter(client, ingest.Config{BatchSize: 4, FlushInterval: time.Hour}, zerolog.Nop())
		require.NoError(t, err)

		err = pushLines(ctx, strings.NewReader("{\"state\":[1]}\nnot json\n"), writer)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "line 2")
	})

	t.Run("GetStats", func(t *testing.T) {
		resp, err := client.GetStats(ctx, &replayv1.GetStatsRequest{})
		require.NoError(t, err)
		assert.Equal(t, uint64(10), resp.Len)
		assert.Equal(t, uint64(16), resp.Capacity)
		assert.True(t, resp.Prioritized)
		assert.Equal(t, "filling", resp.Phase)
		assert.InDelta(t, 10.0, resp.TotalPriority, 1e-9)
	})

	t.Run("SampleAndUpdate", func(t *testing.T) {
		resp, err := client.Sample(ctx, &replayv1.SampleRequest{BatchSize: 8})
		require.NoError(t, err)
		require.Len(t, resp.Transitions, 8)
		for i, tr := range resp.Transitions {
			assert.Equal(t, float32(resp.Indices[i]), tr.Reward)
			assert.Len(t, tr.State, 10)
			assert.Greater(t, resp.Weights[i], 0.0)
			assert.LessOrEqual(t, resp.Weights[i], 1.0)
		}

		tdErrors := make([]float64, len(resp.Indices))
		for i := range tdErrors {
			tdErrors[i] = float64(i) - 3
		}
		update, err := client.UpdatePriorities(ctx, &replayv1.UpdatePrioritiesRequest{
			Indices:    resp.Indices,
			Priorities: replay.PrioritiesFromTDErrors(tdErrors, replay.DefaultPriorityEpsilon),
		})
		require.NoError(t, err)
		assert.Equal(t, uint32(8), update.UpdatedCount)
	})

	t.Run("Export", func(t *testing.T) {
		resp, err := client.Export(ctx, &replayv1.ExportRequest{})
		require.NoError(t, err)
		require.Len(t, resp.Transitions, 10)
		for i, tr := range resp.Transitions {
			assert.Equal(t, float32(i), tr.Reward)
		}
	})

	t.Run("Errors", func(t *testing.T) {
		_, err := client.Sample(ctx, &replayv1.SampleRequest{BatchSize: 0})
		assert.Equal(t, codes.InvalidArgument, status.Code(err))

		_, err = client.Push(ctx, &replayv1.PushRequest{Transitions: []*replayv1.Transition{{
			State: []float32{1}, Action: []float32{0}, NextState: []float32{1},
		}}})
		assert.Equal(t, codes.InvalidArgument, status.Code(err))

		_, err = client.Checkpoint(ctx, &replayv1.CheckpointRequest{})
		assert.Equal(t, codes.FailedPrecondition, status.Code(err))
	})
}

func TestUniformServiceIntegration(t *testing.T) {
	ctx := context.Background()
	buf, err := replay.NewUniform(4, replay.WithSeed(1))
	require.NoError(t, err)
	client := replayv1.NewReplayClient(startServer(t, buf))

	_, err = client.Sample(ctx, &replayv1.SampleRequest{BatchSize: 1})
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))

	push, err := client.Push(ctx, &replayv1.PushRequest{Transitions: []*replayv1.Transition{
		{State: []float32{1}, Action: []float32{1}, NextState: []float32{2}},
		{State: []float32{2}, Action: []float32{0}, NextState: []float32{3}, Done: true},
	}})
	require.NoError(t, err)
	assert.Equal(t, []int64{0, 1}, push.Indices)

	sample, err := client.Sample(ctx, &replayv1.SampleRequest{BatchSize: 4})
	require.NoError(t, err)
	assert.False(t, sample.Prioritized)
	assert.Equal(t, []float64{1, 1, 1, 1}, sample.Weights)

	_, err = client.SetBeta(ctx, &replayv1.SetBetaRequest{Beta: 1})
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))
}

package inference

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"net"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"
)

type fakeModel struct {
	mu      sync.Mutex
	faces   []any
	lastReq *structpb.Struct
}

func (m *fakeModel) detect(req *structpb.Struct) (*structpb.Struct, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastReq = req
	return structpb.NewStruct(map[string]any{"faces": m.faces})
}

func detectHandler(srv any, _ context.Context, dec func(any) error, _ grpc.UnaryServerInterceptor) (any, error) {
	req := &structpb.Struct{}
	if err := dec(req); err != nil {
		return nil, err
	}
	return srv.(*fakeModel).detect(req)
}

var expressionServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*any)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Detect", Handler: detectHandler},
	},
}

func startModel(t *testing.T, model *fakeModel, status healthpb.HealthCheckResponse_ServingStatus) *GRPCDetector {
	t.Helper()
	lis := bufconn.Listen(1024 * 1024)
	srv := grpc.NewServer()
	srv.RegisterService(&expressionServiceDesc, model)

	hs := health.NewServer()
	hs.SetServingStatus(ServiceName, status)
	healthpb.RegisterHealthServer(srv, hs)

	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	det, err := Dial("passthrough:///bufnet", Options{Landmarks: true},
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}))
	require.NoError(t, err)
	t.Cleanup(func() { _ = det.Close() })
	return det
}

func TestGRPCDetector_Detect(t *testing.T) {
	landmarks := make([]any, 68)
	for i := range landmarks {
		landmarks[i] = []any{float64(i), float64(i) * 2}
	}
	model := &fakeModel{faces: []any{
		map[string]any{
			"expressions": map[string]any{"happy": 0.8, "neutral": 0.1, "surprised": 0.05},
			"box":         map[string]any{"x": 10.0, "y": 20.0, "width": 100.0, "height": 120.0},
			"landmarks":   landmarks,
		},
	}}
	det := startModel(t, model, healthpb.HealthCheckResponse_SERVING)

	got, err := det.Detect(context.Background(), []byte("jpeg-bytes"))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.InDelta(t, 0.8, got.Sample.Happy, 1e-9)
	assert.InDelta(t, 0.1, got.Sample.Neutral, 1e-9)
	assert.InDelta(t, 0.05, got.Sample.Surprised, 1e-9)
	assert.Equal(t, Box{X: 10, Y: 20, Width: 100, Height: 120}, got.Box)
	require.Len(t, got.Sample.Landmarks, 68)
	assert.Equal(t, 134.0, got.Sample.Landmarks[67].Y)

	model.mu.Lock()
	defer model.mu.Unlock()
	frame := model.lastReq.GetFields()["frame"].GetStringValue()
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("jpeg-bytes")), frame)
	assert.True(t, model.lastReq.GetFields()["landmarks"].GetBoolValue())
}

func TestGRPCDetector_NoFaceIsNotAnError(t *testing.T) {
	det := startModel(t, &fakeModel{faces: []any{}}, healthpb.HealthCheckResponse_SERVING)
	got, err := det.Detect(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestGRPCDetector_Ready(t *testing.T) {
	det := startModel(t, &fakeModel{}, healthpb.HealthCheckResponse_SERVING)
	assert.NoError(t, det.Ready(context.Background()))

	down := startModel(t, &fakeModel{}, healthpb.HealthCheckResponse_NOT_SERVING)
	err := down.Ready(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrModelUnavailable))
}

const recording = `# three ticks, one without a face
{"happy":0.2,"neutral":0.5}
{"no_face":true}

{"happy":0.8,"neutral":0.1,"box":{"x":1,"y":2,"width":3,"height":4}}
`

func TestReplaySource(t *testing.T) {
	ctx := context.Background()
	src, err := LoadReplay(strings.NewReader(recording))
	require.NoError(t, err)
	assert.Equal(t, 3, src.Len())

	require.NoError(t, src.Open(ctx))

	_, err = src.Frame(ctx)
	require.NoError(t, err)
	d, err := src.Detect(ctx, nil)
	require.NoError(t, err)
	require.NotNil(t, d)
	assert.Equal(t, 0.2, d.Sample.Happy)

	_, err = src.Frame(ctx)
	require.NoError(t, err)
	d, err = src.Detect(ctx, nil)
	require.NoError(t, err)
	assert.Nil(t, d, "no_face line yields no detection")

	_, err = src.Frame(ctx)
	require.NoError(t, err)
	d, err = src.Detect(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, Box{X: 1, Y: 2, Width: 3, Height: 4}, d.Box)

	_, err = src.Frame(ctx)
	assert.ErrorIs(t, err, io.EOF)

	require.NoError(t, src.Close())
	require.NoError(t, src.Close())
}

func TestLoadReplay_BadLine(t *testing.T) {
	_, err := LoadReplay(strings.NewReader("{\"happy\":0.1}\nnot json\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}

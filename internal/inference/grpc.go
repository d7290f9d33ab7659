package inference

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/blackwell-systems/smilecoach/internal/smile"
)

const (
	// ServiceName is the gRPC service the model server exposes.
	ServiceName = "smile.ExpressionService"
	// DetectMethod is the full method name of the detect call.
	DetectMethod = "/" + ServiceName + "/Detect"
)

// GRPCDetector calls a model server over gRPC. Requests and responses are
// google.protobuf.Struct messages:
//
//	request:  {frame: base64 bytes, landmarks: bool}
//	response: {faces: [{expressions: {happy, sad, ...}, box: {x, y, width, height}, landmarks: [[x, y], ...]}]}
type GRPCDetector struct {
	conn      *grpc.ClientConn
	addr      string
	timeout   time.Duration
	landmarks bool
}

// Options tunes the gRPC detector.
type Options struct {
	Timeout   time.Duration
	Landmarks bool
}

// Dial connects to the model server at addr.
func Dial(addr string, opts Options, extra ...grpc.DialOption) (*GRPCDetector, error) {
	log.Printf("inference: connecting to expression model at %s", addr)

	dialOpts := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(
			grpc.MaxCallRecvMsgSize(16*1024*1024),
			grpc.MaxCallSendMsgSize(16*1024*1024),
		),
		grpc.WithKeepaliveParams(keepalive.ClientParameters{
			Time:                10 * time.Second,
			Timeout:             3 * time.Second,
			PermitWithoutStream: true,
		}),
	}
	dialOpts = append(dialOpts, extra...)

	conn, err := grpc.NewClient(addr, dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("connecting to expression model at %s: %w", addr, err)
	}

	if opts.Timeout <= 0 {
		opts.Timeout = 2 * time.Second
	}
	return &GRPCDetector{
		conn:      conn,
		addr:      addr,
		timeout:   opts.Timeout,
		landmarks: opts.Landmarks,
	}, nil
}

// Ready checks the server's health status for the expression service.
func (d *GRPCDetector) Ready(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	resp, err := healthpb.NewHealthClient(d.conn).Check(ctx, &healthpb.HealthCheckRequest{Service: ServiceName})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		return fmt.Errorf("%w: status %s", ErrModelUnavailable, resp.GetStatus())
	}
	return nil
}

// Detect sends one frame to the model.
func (d *GRPCDetector) Detect(ctx context.Context, frame []byte) (*Detection, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	req, err := structpb.NewStruct(map[string]any{
		"frame":     base64.StdEncoding.EncodeToString(frame),
		"landmarks": d.landmarks,
	})
	if err != nil {
		return nil, err
	}

	resp := &structpb.Struct{}
	if err := d.conn.Invoke(ctx, DetectMethod, req, resp); err != nil {
		return nil, fmt.Errorf("detecting expressions: %w", err)
	}
	return parseDetectResponse(resp), nil
}

// Close closes the connection.
func (d *GRPCDetector) Close() error {
	if d.conn != nil {
		return d.conn.Close()
	}
	return nil
}

// parseDetectResponse takes the first face of a response, or nil.
func parseDetectResponse(resp *structpb.Struct) *Detection {
	faces := resp.GetFields()["faces"].GetListValue().GetValues()
	if len(faces) == 0 {
		return nil
	}
	face := faces[0].GetStructValue()
	if face == nil {
		return nil
	}

	ex := face.GetFields()["expressions"].GetStructValue().GetFields()
	num := func(m map[string]*structpb.Value, k string) float64 {
		return m[k].GetNumberValue()
	}

	det := &Detection{
		Sample: smile.Sample{
			Happy:     num(ex, "happy"),
			Sad:       num(ex, "sad"),
			Angry:     num(ex, "angry"),
			Fearful:   num(ex, "fearful"),
			Surprised: num(ex, "surprised"),
			Neutral:   num(ex, "neutral"),
		},
	}

	box := face.GetFields()["box"].GetStructValue().GetFields()
	det.Box = Box{X: num(box, "x"), Y: num(box, "y"), Width: num(box, "width"), Height: num(box, "height")}

	for _, p := range face.GetFields()["landmarks"].GetListValue().GetValues() {
		xy := p.GetListValue().GetValues()
		if len(xy) != 2 {
			continue
		}
		det.Sample.Landmarks = append(det.Sample.Landmarks, smile.Point{X: xy[0].GetNumberValue(), Y: xy[1].GetNumberValue()})
	}
	return det
}

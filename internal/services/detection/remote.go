package detection

import (
	"context"
	"crypto/tls"
	"encoding/base64"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gocv.io/x/gocv"
	"google.golang.org/grpc"
	"google.golang.org/grpc/connectivity"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/protobuf/types/known/structpb"

	"dualvision-worker-go/internal/models"
)

// RemoteHealthService is the health service name the remote detector answers for
const RemoteHealthService = "dualvision.Detector"

// RemoteOptions configures the gRPC learned detector
type RemoteOptions struct {
	Endpoint string
	Method   string
	Quality  int
}

// RemoteDetector sends JPEG frames to a remote inference service over gRPC.
// Requests and responses are google.protobuf.Struct messages:
//
//	request:  {"image": <base64 jpeg>, "width": w, "height": h}
//	response: {"detections": [{"x1","y1","x2","y2","confidence","class_label"}]}
type RemoteDetector struct {
	mu       sync.RWMutex
	conn     *grpc.ClientConn
	endpoint string
	method   string
	quality  int
	logger   zerolog.Logger

	// Retry management
	lastFailTime     time.Time
	consecutiveFails int
	maxRetryBackoff  time.Duration
}

// NewRemoteDetector creates the client; connection happens lazily through grpc.NewClient
func NewRemoteDetector(opts RemoteOptions) *RemoteDetector {
	if opts.Quality <= 0 || opts.Quality > 100 {
		opts.Quality = 90
	}
	d := &RemoteDetector{
		endpoint:        opts.Endpoint,
		method:          opts.Method,
		quality:         opts.Quality,
		maxRetryBackoff: 30 * time.Second,
		logger:          log.With().Str("service", "detection").Str("kind", models.SourceLearned.String()).Str("backend", "grpc").Logger(),
	}
	if err := d.Connect(); err != nil {
		d.logger.Warn().Err(err).Msg("Remote detector not connected, will retry later")
	}
	return d
}

// Connect establishes the gRPC client connection
func (d *RemoteDetector) Connect() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.conn != nil {
		return nil
	}

	target, creds, err := parseGRPCEndpoint(d.endpoint)
	if err != nil {
		return fmt.Errorf("failed to parse detector endpoint %s: %w", d.endpoint, err)
	}

	conn, err := grpc.NewClient(target, grpc.WithTransportCredentials(creds))
	if err != nil {
		return fmt.Errorf("failed to connect to detector at %s: %w", target, err)
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{Service: RemoteHealthService})
		if err != nil {
			d.logger.Warn().Err(err).Str("endpoint", target).Msg("Initial detector health check failed")
			return
		}
		d.logger.Info().Str("endpoint", target).Str("status", resp.GetStatus().String()).Msg("Detector health check passed")
	}()

	d.conn = conn
	d.consecutiveFails = 0
	d.logger.Info().Str("endpoint", target).Msg("Remote detector connection initialized")
	return nil
}

func (d *RemoteDetector) Kind() models.DetectionSource { return models.SourceLearned }

// Available reports whether a connection exists and is not in a failure state
func (d *RemoteDetector) Available() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.conn == nil {
		return false
	}
	state := d.conn.GetState()
	return state != connectivity.Shutdown
}

func (d *RemoteDetector) Detect(ctx context.Context, frame gocv.Mat) ([]models.Detection, error) {
	if !d.shouldRetry() {
		return []models.Detection{}, fmt.Errorf("%w: in backoff period after consecutive failures", ErrUnavailable)
	}

	d.mu.RLock()
	conn := d.conn
	d.mu.RUnlock()
	if conn == nil {
		if err := d.Connect(); err != nil {
			d.recordFailure()
			return []models.Detection{}, err
		}
		d.mu.RLock()
		conn = d.conn
		d.mu.RUnlock()
	}

	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, frame, []int{gocv.IMWriteJpegQuality, d.quality})
	if err != nil {
		return nil, fmt.Errorf("failed to encode frame: %w", err)
	}
	img := base64.StdEncoding.EncodeToString(buf.GetBytes())
	buf.Close()

	req, err := structpb.NewStruct(map[string]interface{}{
		"image":  img,
		"width":  frame.Cols(),
		"height": frame.Rows(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp := &structpb.Struct{}
	if err := conn.Invoke(ctx, d.method, req, resp); err != nil {
		d.recordFailure()
		return nil, fmt.Errorf("inference failed: %w", err)
	}

	d.mu.Lock()
	d.consecutiveFails = 0
	d.mu.Unlock()

	return detectionsFromStruct(resp)
}

func (d *RemoteDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.conn == nil {
		return nil
	}
	err := d.conn.Close()
	d.conn = nil
	return err
}

// shouldRetry applies exponential backoff: 1s, 2s, 4s ... up to maxRetryBackoff
func (d *RemoteDetector) shouldRetry() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.consecutiveFails == 0 {
		return true
	}

	backoff := time.Duration(1<<uint(min(d.consecutiveFails-1, 10))) * time.Second
	if backoff > d.maxRetryBackoff {
		backoff = d.maxRetryBackoff
	}
	return time.Since(d.lastFailTime) >= backoff
}

func (d *RemoteDetector) recordFailure() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.consecutiveFails++
	d.lastFailTime = time.Now()

	if d.consecutiveFails <= 5 {
		d.logger.Warn().Int("consecutive_fails", d.consecutiveFails).Msg("Remote detector failure recorded")
	}
}

func detectionsFromStruct(resp *structpb.Struct) ([]models.Detection, error) {
	dets := []models.Detection{}
	if resp == nil {
		return dets, nil
	}
	list := resp.GetFields()["detections"].GetListValue()
	if list == nil {
		return dets, nil
	}
	for i, v := range list.GetValues() {
		obj := v.GetStructValue()
		if obj == nil {
			return nil, fmt.Errorf("detection %d is not an object", i)
		}
		f := obj.GetFields()
		label := f["class_label"].GetStringValue()
		if !isPrintableASCII(label) {
			label = fmt.Sprintf("Class_%d", int(f["class_id"].GetNumberValue()))
		}
		dets = append(dets, models.Detection{
			BBox: models.BBox{
				X1: int(f["x1"].GetNumberValue()),
				Y1: int(f["y1"].GetNumberValue()),
				X2: int(f["x2"].GetNumberValue()),
				Y2: int(f["y2"].GetNumberValue()),
			},
			Confidence: f["confidence"].GetNumberValue(),
			ClassLabel: label,
			Source:     models.SourceLearned,
		})
	}
	return dets, nil
}

// parseGRPCEndpoint normalizes host[:port] or URL endpoints and picks credentials from the scheme
func parseGRPCEndpoint(endpoint string) (string, credentials.TransportCredentials, error) {
	if endpoint == "" {
		return "", nil, fmt.Errorf("empty endpoint")
	}
	if !strings.Contains(endpoint, "://") {
		host, portStr, found := strings.Cut(endpoint, ":")
		switch {
		case !found:
			endpoint = "https://" + host + ":443"
		default:
			port, err := strconv.Atoi(portStr)
			if err == nil && (port == 443 || port == 8443 || port == 9443) {
				endpoint = "https://" + endpoint
			} else {
				endpoint = "http://" + endpoint
			}
		}
	}

	u, err := url.Parse(endpoint)
	if err != nil {
		return "", nil, fmt.Errorf("invalid endpoint URL: %w", err)
	}

	host := u.Host
	if u.Port() == "" {
		switch u.Scheme {
		case "https":
			host = u.Hostname() + ":443"
		case "http":
			host = u.Hostname() + ":80"
		default:
			return "", nil, fmt.Errorf("unsupported scheme: %s", u.Scheme)
		}
	}

	switch u.Scheme {
	case "https":
		return host, credentials.NewTLS(&tls.Config{ServerName: u.Hostname()}), nil
	case "http":
		return host, insecure.NewCredentials(), nil
	default:
		return "", nil, fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
}

package mjpeg

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"gocv.io/x/gocv"
)

// Boundary separates parts of the multipart stream
const Boundary = "frame"

// ContentType is the response type of a stream endpoint
const ContentType = "multipart/x-mixed-replace; boundary=" + Boundary

// FramePart wraps one JPEG as a self-contained multipart part
func FramePart(jpeg []byte) []byte {
	var b bytes.Buffer
	b.Grow(len(jpeg) + 48)
	b.WriteString("--" + Boundary + "\r\n")
	b.WriteString("Content-Type: image/jpeg\r\n\r\n")
	b.Write(jpeg)
	b.WriteString("\r\n")
	return b.Bytes()
}

var partHeader = []byte("--" + Boundary + "\r\nContent-Type: image/jpeg\r\n\r\n")

// JPEGFromPart strips the framing added by FramePart. Anything else yields nil.
func JPEGFromPart(part []byte) []byte {
	if !bytes.HasPrefix(part, partHeader) || !bytes.HasSuffix(part, []byte("\r\n")) {
		return nil
	}
	body := part[len(partHeader) : len(part)-2]
	if len(body) == 0 {
		return nil
	}
	return body
}

// Publisher fans framed parts out to subscribers. Each subscriber has a small
// queue; when it is full the oldest part is dropped so a slow reader always
// sees recent frames and never stalls the producer.
type Publisher struct {
	buffer int

	mu     sync.RWMutex
	latest []byte
	subs   map[uint64]chan []byte
	nextID uint64
	closed bool

	published atomic.Uint64
	dropped   atomic.Uint64
}

// NewPublisher creates a publisher with buffer parts per subscriber
func NewPublisher(buffer int) *Publisher {
	if buffer <= 0 {
		buffer = 2
	}
	return &Publisher{
		buffer: buffer,
		subs:   make(map[uint64]chan []byte),
	}
}

// Publish hands part to every subscriber without blocking
func (p *Publisher) Publish(part []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.latest = part
	for _, ch := range p.subs {
		select {
		case ch <- part:
			continue
		default:
		}
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- part:
		default:
		}
		p.dropped.Add(1)
	}
	p.published.Add(1)
}

// Subscribe returns a channel of parts that is closed when ctx ends or the
// publisher is closed.
func (p *Publisher) Subscribe(ctx context.Context) <-chan []byte {
	ch := make(chan []byte, p.buffer)

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		close(ch)
		return ch
	}
	id := p.nextID
	p.nextID++
	p.subs[id] = ch
	count := len(p.subs)
	p.mu.Unlock()

	log.Debug().Uint64("subscriber_id", id).Int("subscribers", count).Msg("Stream subscriber added")

	go func() {
		<-ctx.Done()
		p.unsubscribe(id)
	}()
	return ch
}

func (p *Publisher) unsubscribe(id uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if ch, ok := p.subs[id]; ok {
		delete(p.subs, id)
		close(ch)
		log.Debug().Uint64("subscriber_id", id).Int("subscribers", len(p.subs)).Msg("Stream subscriber removed")
	}
}

// Latest returns the most recently published part, nil when none
func (p *Publisher) Latest() []byte {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.latest
}

// Reset forgets the latest part
func (p *Publisher) Reset() {
	p.mu.Lock()
	p.latest = nil
	p.mu.Unlock()
}

// Subscribers returns the number of attached readers
func (p *Publisher) Subscribers() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.subs)
}

// Stats returns how many parts were published and how many were dropped for slow readers
func (p *Publisher) Stats() (published, dropped uint64) {
	return p.published.Load(), p.dropped.Load()
}

// Shutdown closes every subscriber channel. Later subscriptions get a closed channel.
func (p *Publisher) Shutdown() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	for id, ch := range p.subs {
		delete(p.subs, id)
		close(ch)
	}
	log.Info().Msg("MJPEG Publisher shutting down")
}

// StreamMJPEGHTTP writes parts from frames to w until the request ends or
// frames is closed. first, when non-empty, is written before any frame. The
// last part is repeated every keepalive so idle connections stay open.
func StreamMJPEGHTTP(w http.ResponseWriter, r *http.Request, frames <-chan []byte, first []byte, keepalive time.Duration) {
	w.Header().Set("Content-Type", ContentType)
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	var last []byte
	writePart := func(part []byte) bool {
		if _, err := w.Write(part); err != nil {
			return false
		}
		flusher.Flush()
		last = part
		return true
	}

	if len(first) > 0 {
		if !writePart(first) {
			return
		}
	}

	if keepalive <= 0 {
		keepalive = 2 * time.Second
	}
	keepaliveTicker := time.NewTicker(keepalive)
	defer keepaliveTicker.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case part, ok := <-frames:
			if !ok {
				return
			}
			if !writePart(part) {
				return
			}
			keepaliveTicker.Reset(keepalive)
		case <-keepaliveTicker.C:
			if len(last) > 0 && !writePart(last) {
				return
			}
		}
	}
}

// Placeholder renders a gray frame with a status line, framed as a part.
// It returns nil if encoding fails.
func Placeholder(width, height int, lines ...string) []byte {
	if width <= 0 || height <= 0 {
		width, height = 640, 360
	}
	placeholder := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(64, 64, 64, 0), height, width, gocv.MatTypeCV8UC3)
	defer placeholder.Close()

	textColor := color.RGBA{R: 255, G: 255, B: 255, A: 255}
	for i, line := range lines {
		gocv.PutText(&placeholder, line, image.Pt(20, height/2+i*40), gocv.FontHersheySimplex, 0.8, textColor, 2)
	}

	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, placeholder, []int{gocv.IMWriteJpegQuality, 90})
	if err != nil {
		log.Warn().Err(err).Msg("Failed to encode placeholder frame")
		return nil
	}
	defer buf.Close()
	b := buf.GetBytes()
	jpeg := make([]byte, len(b))
	copy(jpeg, b)
	return FramePart(jpeg)
}

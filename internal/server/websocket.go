package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/franckalain/eatsmarty/internal/decoder"
	"github.com/franckalain/eatsmarty/internal/models"
	"github.com/franckalain/eatsmarty/internal/product"
	"github.com/franckalain/eatsmarty/internal/scanner"
	"github.com/franckalain/eatsmarty/internal/store"
)

// frameBuffer is how many undecoded frames a client may have queued.
const frameBuffer = 4

type inboundMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type deviceInfo struct {
	ID     string `json:"id"`
	Label  string `json:"label"`
	Facing string `json:"facing"`
}

type startScanData struct {
	Devices []deviceInfo `json:"devices"`
}

type frameData struct {
	Image  string `json:"image"` // base64 or data URL
	Format string `json:"format"`
}

type resolveData struct {
	Barcode string `json:"barcode"`
}

type cameraErrorData struct {
	Message string `json:"message"`
}

// wsClient is one websocket connection and the scan session it drives.
type wsClient struct {
	id     string
	conn   *websocket.Conn
	server *Server
	logger *zap.Logger

	// ctx is cancelled when the connection goes away
	ctx    context.Context
	cancel context.CancelFunc

	writeMu sync.Mutex

	mu       sync.Mutex
	camera   *scanner.PushCamera
	session  *scanner.Session
	frameSeq atomic.Uint64
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &wsClient{
		id:     uuid.New().String(),
		conn:   conn,
		server: s,
		ctx:    ctx,
		cancel: cancel,
	}
	c.logger = s.logger.With(zap.String("client_id", c.id))

	s.clients.Store(c.id, c)
	defer s.clients.Delete(c.id)
	defer c.close()

	// every client sees history and settings changes, whoever made them
	defer s.deps.Products.Subscribe(func(st store.ProductState) {
		c.send("history", map[string]any{"items": st.Recent})
	})()
	defer s.deps.Settings.Subscribe(func(p models.Preferences) {
		c.send("settings", p)
	})()

	c.logger.Debug("websocket client connected")
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Debug("websocket read ended", zap.Error(err))
			}
			return
		}

		var msg inboundMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			c.logger.Warn("error parsing message", zap.Error(err))
			c.sendError("Invalid message format")
			continue
		}
		c.handleMessage(msg)
	}
}

func (c *wsClient) handleMessage(msg inboundMessage) {
	switch msg.Type {
	case "start_scan":
		c.handleStartScan(msg.Data)
	case "frame":
		c.handleFrame(msg.Data)
	case "camera_error":
		c.handleCameraError(msg.Data)
	case "stop_scan":
		c.stopScan()
	case "resolve":
		c.handleResolve(msg.Data)
	case "get_history":
		c.send("history", map[string]any{"items": c.server.deps.Products.Recent()})
	case "get_settings":
		c.send("settings", c.server.deps.Settings.Get())
	default:
		c.sendError("Unknown message type")
	}
}

func (c *wsClient) handleStartScan(raw json.RawMessage) {
	var data startScanData
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &data); err != nil {
			c.sendError("Invalid start_scan data")
			return
		}
	}

	devices := make([]scanner.Device, 0, len(data.Devices))
	for _, d := range data.Devices {
		devices = append(devices, scanner.Device{ID: d.ID, Label: d.Label, Facing: scanner.ParseFacing(d.Facing)})
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session != nil && c.session.State().Active() {
		c.sendScanError("session_active", scanner.ErrSessionActive.Error())
		return
	}

	opts := []scanner.Option{
		scanner.WithStateObserver(func(id string, st scanner.State) {
			c.send("scan_state", map[string]string{"session_id": id, "state": st.String()})
		}),
	}
	if c.server.deps.DB != nil {
		opts = append(opts, scanner.WithJournal(c.server.deps.DB))
	}

	// frames sent right after scan_started queue on the camera until the
	// session opens its stream
	camera := scanner.NewPushCamera(devices, frameBuffer)
	session := scanner.NewSession(camera, c.server.deps.Decoder, c.logger, opts...)
	if err := session.Start(c.ctx, c.onScanResult, c.onScanError); err != nil {
		c.sendScanError("session_active", err.Error())
		return
	}
	c.camera = camera
	c.session = session
	c.send("scan_started", map[string]string{"session_id": session.ID()})
}

func (c *wsClient) onScanResult(barcode string) {
	c.send("scan_result", map[string]string{"barcode": barcode})
	c.resolve(barcode, product.SourceCamera)
}

func (c *wsClient) onScanError(err error) {
	kind := string(scanner.KindOf(err))
	if kind == "" {
		kind = string(scanner.KindStreamFailure)
	}
	c.sendScanError(kind, err.Error())
}

func (c *wsClient) handleFrame(raw json.RawMessage) {
	var data frameData
	if err := json.Unmarshal(raw, &data); err != nil || data.Image == "" {
		c.sendError("Invalid image data")
		return
	}

	body, format := splitDataURL(data.Image)
	if data.Format != "" {
		format = data.Format
	}
	img, err := base64.StdEncoding.DecodeString(body)
	if err != nil {
		c.sendError("Invalid image format")
		return
	}

	c.mu.Lock()
	camera := c.camera
	c.mu.Unlock()
	if camera == nil || camera.Released() {
		c.sendError("No active scan")
		return
	}

	frame := decoder.Frame{Data: img, Format: format, Seq: c.frameSeq.Add(1)}
	if !camera.Push(frame) {
		if camera.Released() {
			c.sendError("No active scan")
			return
		}
		c.logger.Debug("frame dropped", zap.Uint64("frame", frame.Seq))
	}
}

func (c *wsClient) handleCameraError(raw json.RawMessage) {
	var data cameraErrorData
	_ = json.Unmarshal(raw, &data)
	if data.Message == "" {
		data.Message = "camera error"
	}

	c.mu.Lock()
	camera := c.camera
	c.mu.Unlock()
	if camera != nil {
		camera.Fail(errors.New(data.Message))
	}
}

func (c *wsClient) handleResolve(raw json.RawMessage) {
	var data resolveData
	if err := json.Unmarshal(raw, &data); err != nil {
		c.sendError("Invalid resolve data")
		return
	}
	c.resolve(data.Barcode, product.SourceManual)
}

func (c *wsClient) resolve(barcode, source string) {
	p, err := c.server.deps.Resolver.ResolveFrom(c.ctx, barcode, source)
	if err != nil {
		c.send("product_error", map[string]string{
			"barcode": barcode,
			"kind":    string(product.Outcome(err)),
			"message": product.Message(err),
		})
		return
	}
	c.send("product", map[string]any{"product": c.server.viewProduct(p)})
}

// stopScan abandons the active session without callbacks.
func (c *wsClient) stopScan() {
	c.mu.Lock()
	session := c.session
	c.camera = nil
	c.mu.Unlock()

	if session != nil {
		_ = session.Close()
	}
}

// close abandons any session and closes the connection. Safe to call twice.
func (c *wsClient) close() {
	c.cancel()
	c.stopScan()
	_ = c.conn.Close()
}

func (c *wsClient) send(messageType string, data any) {
	msg := map[string]any{
		"type": messageType,
		"data": data,
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.conn.WriteJSON(msg); err != nil {
		c.logger.Debug("error sending message", zap.String("type", messageType), zap.Error(err))
	}
}

func (c *wsClient) sendScanError(kind, message string) {
	c.send("scan_error", map[string]string{"kind": kind, "message": message})
}

func (c *wsClient) sendError(message string) {
	msg := map[string]any{
		"type":    "error",
		"message": message,
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.conn.WriteJSON(msg); err != nil {
		c.logger.Debug("error sending error message", zap.Error(err))
	}
}

// splitDataURL strips a "data:image/png;base64," prefix and returns the
// payload and the image subtype.
func splitDataURL(s string) (string, string) {
	if !strings.HasPrefix(s, "data:") {
		return s, ""
	}
	header, body, ok := strings.Cut(s, ",")
	if !ok {
		return s, ""
	}
	mime := strings.TrimPrefix(header, "data:")
	mime, _, _ = strings.Cut(mime, ";")
	_, subtype, _ := strings.Cut(mime, "/")
	return body, subtype
}

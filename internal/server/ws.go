package server

import (
	"context"
	"encoding/base64"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/blackwell-systems/smilecoach/internal/history"
	"github.com/blackwell-systems/smilecoach/internal/inference"
	"github.com/blackwell-systems/smilecoach/internal/practice"
	"github.com/blackwell-systems/smilecoach/internal/smile"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 << 20
)

// Client message types.
const (
	msgSelectPurpose  = "select_purpose"
	msgSelectMood     = "select_mood"
	msgConfirmContext = "confirm_context"
	msgStart          = "start"
	msgSample         = "sample"
	msgStop           = "stop"
	msgPostMood       = "post_mood"
	msgReset          = "reset"
)

// clientMessage is one practice command. Sample carries expressions measured
// on the client; Frame is a base64 image, scored by the server's detector
// when Sample is absent.
type clientMessage struct {
	Type    string        `json:"type"`
	Purpose string        `json:"purpose,omitempty"`
	Mood    string        `json:"mood,omitempty"`
	Context string        `json:"context,omitempty"`
	Sample  *smile.Sample `json:"sample,omitempty"`
	Frame   string        `json:"frame,omitempty"`
	NoFace  bool          `json:"no_face,omitempty"`
}

// serverMessage is sent after every client message.
type serverMessage struct {
	Type  string        `json:"type"`
	View  practice.View `json:"view"`
	Error string        `json:"error,omitempty"`
	Code  string        `json:"code,omitempty"`
}

// Error codes reported on the socket.
const (
	codeInvalid          = "invalid_message"
	codeTransition       = "invalid_transition"
	codeQuota            = "guest_quota_exhausted"
	codeGuestNotAccepted = "guest_mode_not_accepted"
	codeDevice           = "device_unavailable"
	codeSaveFailed       = "save_failed"
	codeInference        = "inference_failed"
)

// handlePracticeWS runs one practice session per connection. Identity comes
// from the token or device_id query parameter. Closing the socket resets the
// session.
func (s *Server) handlePracticeWS(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	token := q.Get("token")
	if token == "" {
		token = extractBearerToken(r)
	}
	device := q.Get("device_id")
	if device == "" {
		device = r.Header.Get(DeviceHeader)
	}
	id, err := s.identify(token, device)
	if err != nil {
		writeErr(w, err)
		return
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("server: websocket upgrade: %v", err)
		return
	}

	deps := practice.Deps{
		Evaluator: s.deps.Evaluator,
		Identity:  id,
	}
	if s.deps.History != nil {
		deps.Recorder = s.deps.History
	}
	if id.Guest() && s.deps.Local != nil {
		deps.Quota = s.deps.Local.Quota(id.DeviceID, s.deps.GuestLimit)
	}
	sess := practice.NewSession(s.deps.Practice, deps)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	defer func() {
		sess.Reset()
		_ = conn.Close()
	}()

	go pingLoop(ctx, conn)

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg clientMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("server: practice socket: %v", err)
			}
			return
		}
		reply := s.dispatch(ctx, sess, id, msg)
		reply.Type = "state"
		reply.View = sess.View()
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(reply); err != nil {
			log.Printf("server: practice socket write: %v", err)
			return
		}
	}
}

func pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

func (s *Server) checkOrigin(r *http.Request) bool {
	if len(s.deps.AllowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, o := range s.deps.AllowedOrigins {
		if o == "*" || o == origin {
			return true
		}
	}
	return false
}

// dispatch applies one client message and returns any error to report.
func (s *Server) dispatch(ctx context.Context, sess *practice.Session, id history.Identity, msg clientMessage) serverMessage {
	var err error
	switch msg.Type {
	case msgSelectPurpose:
		var p smile.Purpose
		if p, err = smile.ParsePurpose(msg.Purpose); err == nil {
			err = sess.SelectPurpose(p)
		}
	case msgSelectMood:
		var m history.Mood
		if m, err = history.ParseMoodBefore(msg.Mood); err == nil {
			err = sess.SelectMood(m)
		}
	case msgConfirmContext:
		var c smile.Context
		if c, err = smile.ParseContext(msg.Context); err == nil {
			err = sess.ConfirmContext(c)
		}
	case msgStart:
		if id.Guest() && s.deps.Local != nil {
			accepted, aerr := s.deps.Local.GuestAccepted(ctx, id.DeviceID)
			if aerr != nil {
				return errorMessage(codeInvalid, aerr)
			}
			if !accepted {
				return errorMessage(codeGuestNotAccepted, errors.New("accept guest mode before practicing"))
			}
		}
		err = sess.Start(ctx)
	case msgSample:
		return s.applySample(ctx, sess, msg)
	case msgStop:
		// The session reaches Reviewing even when saving fails.
		if _, err = sess.Stop(ctx); err != nil && !errors.Is(err, practice.ErrInvalidTransition) {
			return errorMessage(codeSaveFailed, err)
		}
	case msgPostMood:
		var m history.Mood
		if m, err = history.ParseMoodAfter(msg.Mood); err == nil {
			err = sess.RecordPostMood(ctx, m)
		}
	case msgReset:
		sess.Reset()
	default:
		return errorMessage(codeInvalid, errors.New("unknown message type "+msg.Type))
	}
	if err != nil {
		return errorMessage(codeFor(err), err)
	}
	return serverMessage{}
}

// applySample feeds one sample or frame into the running session. Samples
// arriving outside Detecting are ignored, matching a tick that lost the race
// with stop.
func (s *Server) applySample(ctx context.Context, sess *practice.Session, msg clientMessage) serverMessage {
	t, ok := sess.Ticket()
	if !ok {
		return serverMessage{}
	}

	var frame []byte
	if msg.Frame != "" {
		f, err := base64.StdEncoding.DecodeString(msg.Frame)
		if err != nil {
			return errorMessage(codeInvalid, errors.New("frame is not valid base64"))
		}
		frame = f
	}

	var det *inference.Detection
	switch {
	case msg.NoFace:
	case msg.Sample != nil:
		det = &inference.Detection{Sample: *msg.Sample}
	case frame != nil && s.deps.Detector != nil:
		d, err := s.deps.Detector.Detect(ctx, frame)
		if err != nil {
			log.Printf("server: inference failed, tick skipped: %v", err)
			return errorMessage(codeInference, err)
		}
		det = d
	default:
		return errorMessage(codeInvalid, errors.New("sample needs expressions, a frame or no_face"))
	}
	sess.Apply(t, det, frame)
	return serverMessage{}
}

func codeFor(err error) string {
	switch {
	case errors.Is(err, practice.ErrGuestQuotaExhausted):
		return codeQuota
	case errors.Is(err, practice.ErrDeviceUnavailable):
		return codeDevice
	case errors.Is(err, practice.ErrInvalidTransition), errors.Is(err, practice.ErrIncompleteSelection):
		return codeTransition
	case errors.Is(err, history.ErrRemoteSaveFailed):
		return codeSaveFailed
	}
	return codeInvalid
}

func errorMessage(code string, err error) serverMessage {
	return serverMessage{Error: err.Error(), Code: code}
}

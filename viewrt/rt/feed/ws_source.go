package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/gekko3d/airspace"
)

// Message types understood on the stream.
const (
	MessageAirspace = "airspace"
	MessagePosition = "position"
	MessageEntity   = "entity"
	MessageRemoved  = "removed"
)

// Envelope is one frame of the stream: {"type": ..., "data": ...}.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type removedEvent struct {
	ID string `json:"id"`
}

// WSSource follows a live airspace stream. The first frame must be a full
// airspace document; later frames patch it and each accepted change
// publishes a complete Update.
type WSSource struct {
	conn    *websocket.Conn
	log     airspace.Logger
	state   State
	updates chan Update
	done    chan struct{}
	wg      sync.WaitGroup
	once    sync.Once
}

func DialWS(ctx context.Context, url string, log airspace.Logger) (*WSSource, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	s := &WSSource{
		conn:    conn,
		log:     airspace.OrNop(log),
		updates: make(chan Update, 1),
		done:    make(chan struct{}),
	}
	s.wg.Add(1)
	go s.read()
	return s, nil
}

func (s *WSSource) Updates() <-chan Update { return s.updates }

func (s *WSSource) read() {
	defer s.wg.Done()
	defer close(s.updates)
	for {
		_, msg, err := s.conn.ReadMessage()
		if err != nil {
			select {
			case <-s.done:
			default:
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					s.log.Warnf("airspace stream: %v", err)
				}
			}
			return
		}
		changed, err := s.apply(msg)
		if err != nil {
			s.log.Warnf("airspace stream: %v", err)
			continue
		}
		if !changed {
			continue
		}
		up, err := s.state.Update()
		if err != nil {
			continue
		}
		publishLatest(s.updates, up, s.done)
	}
}

// apply folds one frame into the state and reports whether anything changed.
func (s *WSSource) apply(msg []byte) (bool, error) {
	var env Envelope
	if err := json.Unmarshal(msg, &env); err != nil {
		return false, fmt.Errorf("bad frame: %w", err)
	}

	switch env.Type {
	case MessageAirspace:
		doc, err := Decode(env.Data, formatJSON)
		if err != nil {
			return false, err
		}
		s.state.Replace(doc)
		return true, nil
	}

	if !s.state.Valid() {
		s.log.Debugf("dropping %q frame received before the airspace document", env.Type)
		return false, nil
	}

	switch env.Type {
	case MessagePosition:
		var ev PositionUpdateEventDTO
		if err := json.Unmarshal(env.Data, &ev); err != nil {
			return false, fmt.Errorf("position event: %w", err)
		}
		if !s.state.ApplyPosition(ev) {
			s.log.Debugf("position update for unknown entity %q", ev.EntityID)
			return false, nil
		}
		return true, nil
	case MessageEntity:
		var ent EntityStateDTO
		if err := json.Unmarshal(env.Data, &ent); err != nil {
			return false, fmt.Errorf("entity event: %w", err)
		}
		if ent.ID == "" {
			return false, errors.New("entity event without id")
		}
		s.state.Upsert(ent)
		return true, nil
	case MessageRemoved:
		var ev removedEvent
		if err := json.Unmarshal(env.Data, &ev); err != nil {
			return false, fmt.Errorf("removed event: %w", err)
		}
		return s.state.Remove(ev.ID), nil
	}
	return false, fmt.Errorf("unknown frame type %q", env.Type)
}

// Close ends the stream and waits for the reader to exit.
func (s *WSSource) Close() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		_ = s.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		err = s.conn.Close()
		s.wg.Wait()
	})
	return err
}

// publishLatest hands up to the consumer, replacing an update it has not
// taken yet.
func publishLatest(ch chan Update, up Update, done <-chan struct{}) {
	for {
		select {
		case ch <- up:
			return
		case <-done:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}

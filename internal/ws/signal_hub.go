package ws

import (
	"encoding/json"
	"log"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 16 * 1024 // SDP offers run to several KB
	sendBufferSize = 256
)

// SignalEnvelope is the wire format in both directions. Data is relayed
// opaquely; the hub never inspects SDP or ICE payloads.
type SignalEnvelope struct {
	Event string          `json:"event"`
	Room  string          `json:"room,omitempty"`
	From  string          `json:"from,omitempty"`
	Role  string          `json:"role,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type signalFrame struct {
	sender  *signalClient // nil for server-originated emits
	room    string
	payload []byte
}

// SignalHub relays proctoring events (agent-joined, student-joined,
// grant-permission, change-section, change-passage, end-exam) and WebRTC
// signaling between the members of an exam room. Delivery is best-effort,
// at-most-once: a client whose send buffer is full is dropped.
type SignalHub struct {
	register   chan *signalClient
	unregister chan *signalClient
	forward    chan signalFrame
	rooms      map[string]map[*signalClient]struct{}
}

func NewSignalHub() *SignalHub {
	return &SignalHub{
		register:   make(chan *signalClient),
		unregister: make(chan *signalClient),
		forward:    make(chan signalFrame, 256),
		rooms:      make(map[string]map[*signalClient]struct{}),
	}
}

func (h *SignalHub) Run() {
	for {
		select {
		case client := <-h.register:
			members := h.rooms[client.room]
			if members == nil {
				members = make(map[*signalClient]struct{})
				h.rooms[client.room] = members
			}
			// Tell the new peer about existing members, then announce it.
			for existing := range members {
				payload := marshalEnvelope(SignalEnvelope{
					Event: "peer-joined", Room: client.room, From: existing.id, Role: existing.role,
				})
				if payload != nil {
					select {
					case client.send <- payload:
					default:
					}
				}
			}
			members[client] = struct{}{}
			h.fanOut(client.room, client, marshalEnvelope(SignalEnvelope{
				Event: "peer-joined", Room: client.room, From: client.id, Role: client.role,
			}))
		case client := <-h.unregister:
			members := h.rooms[client.room]
			if _, ok := members[client]; !ok {
				continue
			}
			h.drop(client)
			h.fanOut(client.room, nil, marshalEnvelope(SignalEnvelope{
				Event: "peer-left", Room: client.room, From: client.id, Role: client.role,
			}))
		case frame := <-h.forward:
			h.fanOut(frame.room, frame.sender, frame.payload)
		}
	}
}

// fanOut sends payload to every room member except sender.
func (h *SignalHub) fanOut(room string, sender *signalClient, payload []byte) {
	if payload == nil {
		return
	}
	for client := range h.rooms[room] {
		if client == sender {
			continue
		}
		select {
		case client.send <- payload:
		default:
			h.drop(client)
		}
	}
}

func (h *SignalHub) drop(client *signalClient) {
	members := h.rooms[client.room]
	if _, ok := members[client]; !ok {
		return
	}
	delete(members, client)
	if len(members) == 0 {
		delete(h.rooms, client.room)
	}
	close(client.send)
	client.conn.Close()
}

// Emit pushes a server-originated event into a room, fire-and-forget. Used
// by controllers for lifecycle notifications such as end-exam.
func (h *SignalHub) Emit(room, event string) {
	if h == nil || room == "" {
		return
	}
	payload := marshalEnvelope(SignalEnvelope{Event: event, Room: room})
	if payload == nil {
		return
	}
	select {
	case h.forward <- signalFrame{room: room, payload: payload}:
	default:
		log.Printf("ws: signal hub busy, dropping %s for room %s", event, room)
	}
}

func marshalEnvelope(env SignalEnvelope) []byte {
	data, err := json.Marshal(env)
	if err != nil {
		log.Printf("ws: failed to marshal envelope: %v", err)
		return nil
	}
	return data
}

type signalClient struct {
	hub  *SignalHub
	conn *websocket.Conn
	send chan []byte
	id   string
	room string
	role string
}

func newSignalClient(hub *SignalHub, conn *websocket.Conn, id, room, role string) *signalClient {
	return &signalClient{
		hub:  hub,
		conn: conn,
		send: make(chan []byte, sendBufferSize),
		id:   id,
		room: room,
		role: role,
	}
}

func (c *signalClient) readPump() {
	defer func() {
		c.hub.unregister <- c
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			break
		}
		var env SignalEnvelope
		if err := json.Unmarshal(data, &env); err != nil || env.Event == "" {
			continue
		}
		if env.Event == "leave" {
			break
		}
		env.Room = c.room
		env.From = c.id
		if env.Role == "" {
			env.Role = c.role
		}
		payload := marshalEnvelope(env)
		if payload == nil {
			continue
		}
		c.hub.forward <- signalFrame{sender: c, room: c.room, payload: payload}
	}
}

func (c *signalClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			if _, err := w.Write(msg); err != nil {
				return
			}
			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

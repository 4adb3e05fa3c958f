package relay

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/kartrace/kartrace-go/log"
	"github.com/kartrace/kartrace-go/pkg/model"
)

const profileTimeout = 5 * time.Second

// dispatch handles one inbound packet. raw is the packet as received and is
// relayed unchanged where no server-side state is involved.
func (s *Server) dispatch(c *conn, p *model.Packet, raw []byte) {
	switch p.Method {
	case model.MethodCreate:
		s.handleCreate(c, p)
	case model.MethodJoin:
		s.handleJoin(c, p)
	case model.MethodStartMultiplayer:
		s.handleStart(c, p, raw)
	case model.MethodFinish:
		s.recordFinish(p)
		s.relay(c, p.Code, raw)
	case model.MethodChat:
		topic := p.Code
		if topic == "" {
			topic = LobbyTopic
		}
		s.publish(topic, raw)
	case model.MethodUserRead:
		s.handleUserRead(c, p)
	case model.MethodUserWrite:
		s.handleUserWrite(c, p)
	default:
		s.relay(c, p.Code, raw)
	}
}

func (s *Server) handleCreate(c *conn, p *model.Packet) {
	if !s.versionAccepted(p.Version) {
		c.reply(&model.Packet{Method: model.MethodCreate, Username: p.Username,
			Track: model.ErrorClientVersion})
		return
	}
	s.leaveRoom(c)
	room := s.rooms.Create(p.Username, p.Track)
	c.setIdentity(p.Username, room.Code)
	if err := c.subscribe(room.Code); err != nil {
		s.l.Error("could not subscribe to room", log.String("code", room.Code), log.ErrorField(err))
	}
	s.l.Info("room created",
		log.String("code", room.Code),
		log.String("host", p.Username),
		log.String("track", p.Track))
	c.reply(&model.Packet{
		Method:   model.MethodCreate,
		Username: p.Username,
		Code:     room.Code,
		Track:    room.Track,
	})
}

func (s *Server) handleJoin(c *conn, p *model.Packet) {
	fail := func(code string) {
		c.reply(&model.Packet{Method: model.MethodJoin, Username: p.Username,
			Code: p.Code, Track: code})
	}
	if !s.versionAccepted(p.Version) {
		fail(model.ErrorClientVersion)
		return
	}
	if _, cur := c.identity(); cur != "" && cur != p.Code {
		s.leaveRoom(c)
	}
	room, err := s.rooms.Join(p.Username, p.Code)
	switch {
	case errors.Is(err, ErrUnknownCode):
		fail(model.ErrorUnknownCode)
		return
	case errors.Is(err, ErrRoomFull):
		fail(model.ErrorRoomFull)
		return
	}
	c.setIdentity(p.Username, room.Code)
	if err := c.subscribe(room.Code); err != nil {
		s.l.Error("could not subscribe to room", log.String("code", room.Code), log.ErrorField(err))
	}
	s.l.Debug("room joined", log.String("code", room.Code), log.String("user", p.Username))
	s.publishPacket(room.Code, roomPacket(model.MethodJoin, p.Username, room))
}

func (s *Server) handleStart(c *conn, p *model.Packet, raw []byte) {
	if _, err := s.rooms.Start(p.Code); err != nil {
		s.l.Debug("start for unknown room", log.String("code", p.Code))
	}
	s.relay(c, p.Code, raw)
}

func (s *Server) recordFinish(p *model.Packet) {
	if s.profiles == nil || p.Username == "" {
		return
	}
	room, ok := s.rooms.Get(p.Code)
	if !ok || room.Track == "" {
		return
	}
	elapsed := time.Duration(p.ElapsedTime * float64(time.Second))
	ctx, cancel := context.WithTimeout(context.Background(), profileTimeout)
	defer cancel()
	if _, err := s.profiles.RecordFinish(ctx, p.Username, room.Track, elapsed); err != nil {
		s.l.Debug("personal best not recorded",
			log.String("user", p.Username),
			log.ErrorField(err))
	}
}

func (s *Server) handleUserRead(c *conn, p *model.Packet) {
	resp := &model.Packet{Method: model.MethodUserRead, Username: p.Username,
		Info1: p.Info1, Info2: p.Info2}
	if s.profiles == nil {
		resp.Message = "profiles not available"
		c.reply(resp)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), profileTimeout)
	defer cancel()
	data, err := s.profiles.Read(ctx, p.Username, p.Info1, p.Info2)
	if err != nil {
		resp.Message = err.Error()
	} else {
		resp.Data = data
	}
	c.reply(resp)
}

func (s *Server) handleUserWrite(c *conn, p *model.Packet) {
	resp := &model.Packet{Method: model.MethodUserWrite, Username: p.Username,
		Info1: p.Info1, Info2: p.Info2}
	if s.profiles == nil {
		resp.Message = "profiles not available"
		c.reply(resp)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), profileTimeout)
	defer cancel()
	if err := s.profiles.Write(ctx, p.Username, p.Info1, p.Info2, p.Data); err != nil {
		resp.Message = err.Error()
	} else {
		resp.Message = "ok"
	}
	c.reply(resp)
}

// relay publishes raw to the room given by code or, without a code, to the
// room the connection is in.
func (s *Server) relay(c *conn, code string, raw []byte) {
	if code == "" {
		_, code = c.identity()
	}
	if code == "" {
		s.l.Debug("dropping packet without room")
		return
	}
	s.publish(code, raw)
}

func (s *Server) publish(topic string, data []byte) {
	if err := s.proxy.Publish(topic, data); err != nil {
		s.l.Warn("publish failed", log.String("topic", topic), log.ErrorField(err))
	}
}

func (s *Server) publishPacket(topic string, p *model.Packet) {
	data, err := json.Marshal(p)
	if err != nil {
		s.l.Error("could not encode packet", log.ErrorField(err))
		return
	}
	s.publish(topic, data)
}

// leaveRoom removes the connection from its current room and informs the
// remaining members.
func (s *Server) leaveRoom(c *conn) {
	username, code := c.identity()
	if code == "" {
		return
	}
	c.unsubscribe(code)
	c.setIdentity(username, "")
	room, deleted := s.rooms.Leave(username, code)
	if deleted {
		s.l.Info("room closed", log.String("code", code))
		s.proxy.Release(code)
		return
	}
	s.publishPacket(code, roomPacket(model.MethodLeave, username, room))
}

func roomPacket(method, username string, room Room) *model.Packet {
	return &model.Packet{
		Method:   method,
		Username: username,
		Code:     room.Code,
		Users:    room.Users,
		Track:    room.Track,
		Host:     room.Host,
		Ingame:   room.Ingame,
	}
}

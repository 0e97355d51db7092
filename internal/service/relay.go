package service

import (
	"context"
	"errors"

	"github.com/webitel/im-relay-service/config"
	"github.com/webitel/im-relay-service/internal/domain/model"
	"github.com/webitel/im-relay-service/internal/domain/registry"
	"github.com/webitel/im-relay-service/internal/service/dto"
)

// [RELAY_SERVICE] PRIMARY INTERFACE FOR TRANSPORT HANDLERS
type Relayer interface {
	Connect(ctx context.Context, meta model.ConnectMetadata) (*Session, error)
	Dispatch(ctx context.Context, s *Session, env *dto.Envelope) error
	Disconnect(s *Session)
}

type RelayService struct {
	hub        registry.Hubber
	sendBuffer int
}

// NewRelayService returns a production-ready instance of the service.
func NewRelayService(hub registry.Hubber, cfg *config.Config) *RelayService {
	return &RelayService{
		hub:        hub,
		sendBuffer: cfg.Relay.SendBuffer,
	}
}

// Connect creates the connection handle. The session starts Unregistered.
func (r *RelayService) Connect(ctx context.Context, meta model.ConnectMetadata) (*Session, error) {
	return newSession(model.NewConnector(ctx, meta, r.sendBuffer)), nil
}

// Dispatch routes one inbound event according to the session state.
func (r *RelayService) Dispatch(ctx context.Context, s *Session, env *dto.Envelope) error {
	state, userID := s.snapshot()
	if state == Closed {
		return ErrSessionClosed
	}

	switch env.Event {
	case dto.EventRegister:
		return r.register(s, userID, env)
	case dto.EventKeyRequest:
		return r.keyRequest(s, env)
	case dto.EventMessage, dto.EventGroupCreate, dto.EventGroupJoin, dto.EventGroupLeave, dto.EventGroupMessage:
		if state != Registered {
			return newEventError(CodeNotRegistered, env.Event, ErrNotRegistered)
		}
	default:
		return newEventError(CodeUnknownEvent, env.Event, ErrUnknownEvent)
	}

	switch env.Event {
	case dto.EventMessage:
		var req dto.Message
		if err := env.Decode(&req); err != nil {
			return malformed(env.Event, err)
		}
		_, err := r.hub.Send(model.DirectMessage{
			ID:        req.ID,
			From:      req.From,
			To:        req.To,
			Encrypted: req.Encrypted,
		})
		return r.hubErr(env.Event, err)

	case dto.EventGroupMessage:
		var req dto.GroupMessage
		if err := env.Decode(&req); err != nil {
			return malformed(env.Event, err)
		}
		_, err := r.hub.SendGroup(model.GroupMessage{
			ID:        req.ID,
			GroupID:   req.GroupID,
			From:      req.From,
			Encrypted: req.Encrypted,
			Content:   req.Content,
		})
		return r.hubErr(env.Event, err)

	case dto.EventGroupCreate:
		var req dto.GroupCreate
		if err := env.Decode(&req); err != nil {
			return malformed(env.Event, err)
		}
		return r.hubErr(env.Event, r.hub.CreateGroup(req.GroupID, req.Members))

	case dto.EventGroupJoin:
		var req dto.GroupMembership
		if err := env.Decode(&req); err != nil {
			return malformed(env.Event, err)
		}
		return r.hubErr(env.Event, r.hub.JoinGroup(req.GroupID, req.UserID))

	default: // dto.EventGroupLeave
		var req dto.GroupMembership
		if err := env.Decode(&req); err != nil {
			return malformed(env.Event, err)
		}
		return r.hubErr(env.Event, r.hub.LeaveGroup(req.GroupID, req.UserID))
	}
}

func (r *RelayService) register(s *Session, current string, env *dto.Envelope) error {
	var req dto.Register
	if err := env.Decode(&req); err != nil {
		return malformed(env.Event, err)
	}

	// Re-registering under another identity releases the old one first.
	if current != "" && current != req.UserID {
		if _, err := r.hub.Unregister(current, s.conn); err != nil {
			return r.hubErr(env.Event, err)
		}
	}

	if _, err := r.hub.Register(s.conn, registry.RegisterRequest{
		UserID:    req.UserID,
		PublicKey: req.PublicKey,
		Groups:    req.Groups,
	}); err != nil {
		return r.hubErr(env.Event, err)
	}

	s.markRegistered(req.UserID)
	return nil
}

func (r *RelayService) keyRequest(s *Session, env *dto.Envelope) error {
	var req dto.KeyRequest
	if err := env.Decode(&req); err != nil {
		return malformed(env.Event, err)
	}

	key, found, err := r.hub.LookupKey(req.UserID)
	if err != nil {
		return r.hubErr(env.Event, err)
	}

	s.conn.Send(model.NewRelayEvent("", model.KeyResolved, &model.KeyPayload{
		UserID:    req.UserID,
		PublicKey: key,
		Found:     found,
	}))
	return nil
}

// Disconnect closes the session and drops presence if this handle is still current.
// Pending queues and group membership survive.
func (r *RelayService) Disconnect(s *Session) {
	prev, userID := s.markClosed()
	if prev == Registered {
		_, _ = r.hub.Unregister(userID, s.conn)
	}
	s.conn.Close()
}

func (r *RelayService) hubErr(event string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, registry.ErrHubClosed) {
		return newEventError(CodeUnavailable, event, ErrUnavailable)
	}
	return err
}

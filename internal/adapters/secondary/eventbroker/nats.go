package eventbroker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jupiterclapton/bestfit/internal/core/domain"
	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// Sujets publiés. Contrat implicite avec les consumers (dont le nôtre,
// internal/adapters/primary/events, qui rejoue les cascades).
const (
	SubjectPostCreated    = "post.created"
	SubjectPostDeleted    = "post.deleted"
	SubjectPhotoUpdated   = "profile.photo.updated"
	SubjectAccountDeleted = "account.deleted"
)

type NatsPublisher struct {
	nc *nats.Conn
}

func NewNatsPublisher(nc *nats.Conn) *NatsPublisher {
	return &NatsPublisher{nc: nc}
}

// Payloads des événements (pourraient être générés par Protobuf).
type PostCreatedEvent struct {
	ID        string    `json:"id"`
	AuthorID  string    `json:"author_id"`
	Caption   string    `json:"caption"`
	CreatedAt time.Time `json:"created_at"`
}

type PhotoUpdatedEvent struct {
	UserID   string `json:"user_id"`
	PhotoRef string `json:"photo_ref"`
}

func (p *NatsPublisher) PublishPostCreated(ctx context.Context, post *domain.Post) error {
	event := PostCreatedEvent{
		ID:        post.ID,
		AuthorID:  post.AuthorID,
		Caption:   post.Caption,
		CreatedAt: post.CreatedAt,
	}
	return p.publish(ctx, SubjectPostCreated, event)
}

func (p *NatsPublisher) PublishPostDeleted(_ context.Context, postID string) error {
	return p.nc.Publish(SubjectPostDeleted, []byte(postID))
}

func (p *NatsPublisher) PublishPhotoUpdated(ctx context.Context, userID, photoRef string) error {
	return p.publish(ctx, SubjectPhotoUpdated, PhotoUpdatedEvent{UserID: userID, PhotoRef: photoRef})
}

func (p *NatsPublisher) PublishAccountDeleted(_ context.Context, userID string) error {
	return p.nc.Publish(SubjectAccountDeleted, []byte(userID))
}

// publish sérialise et injecte le contexte de trace dans les headers NATS,
// pour que les consumers raccrochent leurs spans à la requête d'origine.
func (p *NatsPublisher) publish(ctx context.Context, subject string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshalling error: %w", err)
	}

	msg := &nats.Msg{
		Subject: subject,
		Data:    data,
		Header:  nats.Header{},
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(msg.Header))

	slog.Debug("📢 Publishing event", "subject", subject)
	return p.nc.PublishMsg(msg)
}

package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/jupiterclapton/bestfit/internal/adapters/secondary/eventbroker"
	"github.com/jupiterclapton/bestfit/internal/core/ports"
	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const handlerTimeout = 30 * time.Second

// EventHandler rejoue les cascades quand le changement vient d'ailleurs
// (autre instance, autre appareil) : la copie dénormalisée locale doit
// rattraper la photo canonique même si CE processus n'a pas vu l'update.
// Les deux cascades sont idempotentes : reconsommer notre propre event
// réapplique la même valeur, sans effet.
type EventHandler struct {
	posts ports.PostStore
}

func NewEventHandler(posts ports.PostStore) *EventHandler {
	return &EventHandler{posts: posts}
}

// Subscribe branche les handlers sur les sujets de cascade.
func (h *EventHandler) Subscribe(nc *nats.Conn) error {
	if _, err := nc.Subscribe(eventbroker.SubjectPhotoUpdated, h.HandlePhotoUpdated); err != nil {
		return err
	}
	if _, err := nc.Subscribe(eventbroker.SubjectAccountDeleted, h.HandleAccountDeleted); err != nil {
		return err
	}
	return nil
}

func (h *EventHandler) HandlePhotoUpdated(msg *nats.Msg) {
	// 1. Extraction du contexte de trace depuis les headers NATS
	ctx := otel.GetTextMapPropagator().Extract(context.Background(), propagation.HeaderCarrier(msg.Header))

	tracer := otel.Tracer("bestfit")
	ctx, span := tracer.Start(ctx, "process_photo_updated", trace.WithSpanKind(trace.SpanKindConsumer))
	defer span.End()

	var event eventbroker.PhotoUpdatedEvent
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		span.RecordError(err)
		slog.Error("❌ Invalid event format", "subject", msg.Subject, "error", err)
		return
	}

	slog.Info("📨 Photo cascade event received", "user_id", event.UserID)

	// 2. Cascade en background, le contexte tracé suit
	go func() {
		childCtx, cancel := context.WithTimeout(ctx, handlerTimeout)
		defer cancel()

		touched, err := h.posts.CascadeAuthorPhoto(childCtx, event.UserID, event.PhotoRef)
		if err != nil {
			slog.Error("❌ Photo cascade failed", "user_id", event.UserID, "error", err)
			return
		}
		slog.Debug("✅ Photo cascade done", "user_id", event.UserID, "posts_touched", touched)
	}()
}

func (h *EventHandler) HandleAccountDeleted(msg *nats.Msg) {
	userID := string(msg.Data)
	if userID == "" {
		slog.Error("❌ Empty account.deleted event")
		return
	}

	slog.Info("📨 Account deletion event received", "user_id", userID)

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
		defer cancel()

		removed, err := h.posts.DeleteByAuthor(ctx, userID)
		if err != nil {
			slog.Error("❌ Account cascade failed", "user_id", userID, "error", err)
			return
		}
		slog.Debug("✅ Account cascade done", "user_id", userID, "posts_removed", removed)
	}()
}

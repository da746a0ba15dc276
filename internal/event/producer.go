package event

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/Mark-AImagineers/NoteKo/internal/domain"
	pkgkafka "github.com/Mark-AImagineers/NoteKo/pkg/kafka"
	"github.com/Mark-AImagineers/NoteKo/pkg/logger"
)

// TopicUserRegistered receives one event per created account.
const TopicUserRegistered = "noteko.user.registered"

// AggregateTypeUser is the aggregate type of every event in this package.
const AggregateTypeUser = "user"

// SourceAuthService identifies events originating from this service.
const SourceAuthService = "auth-service"

// UserRegisteredData is the payload for a user.registered event. It never
// carries the password hash.
type UserRegisteredData struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// Producer publishes user domain events.
type Producer struct {
	publisher pkgkafka.Publisher
	logger    *slog.Logger
}

// NewProducer creates a new event producer on top of any Publisher, usually
// a circuit-breaker wrapped Kafka producer.
func NewProducer(publisher pkgkafka.Publisher, logger *slog.Logger) *Producer {
	return &Producer{publisher: publisher, logger: logger}
}

// PublishUserRegistered publishes a user.registered event.
func (p *Producer) PublishUserRegistered(ctx context.Context, user *domain.User) error {
	data := UserRegisteredData{
		ID:        user.ID,
		Email:     user.Email,
		CreatedAt: user.CreatedAt,
	}

	userID := strconv.FormatInt(user.ID, 10)
	event, err := pkgkafka.NewEvent(TopicUserRegistered, userID, AggregateTypeUser, SourceAuthService, data)
	if err != nil {
		return fmt.Errorf("create user.registered event: %w", err)
	}
	event.WithCorrelationID(logger.RequestIDFromContext(ctx))

	if err := p.publisher.Publish(ctx, TopicUserRegistered, event); err != nil {
		return fmt.Errorf("publish user.registered event: %w", err)
	}

	p.logger.DebugContext(ctx, "published user.registered event", slog.String("user_id", userID))
	return nil
}

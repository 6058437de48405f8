package services

import (
	"context"
	"fmt"
	"log"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/snapcal/apiserver/types"
)

// FoodLogStore defines the persistence operations for the food log ledger.
type FoodLogStore interface {
	Create(ctx context.Context, log types.FoodLog) (types.FoodLog, error)
	ListByUser(ctx context.Context, userID string) ([]types.FoodLog, error)
}

// EventPublisher publishes domain events to the configured broker.
type EventPublisher interface {
	Publish(ctx context.Context, eventType string, payload any) error
}

// EventFoodLogCreated is published after a food log entry is stored.
const EventFoodLogCreated = "foodlog.created"

// FoodLogService encapsulates the append-only food log ledger.
type FoodLogService struct {
	logs   FoodLogStore
	events EventPublisher
}

// NewFoodLogService constructs a FoodLogService. events may be nil to
// disable publishing.
func NewFoodLogService(logs FoodLogStore, events EventPublisher) *FoodLogService {
	return &FoodLogService{logs: logs, events: events}
}

// Append records a new entry for the user. The acting user always comes
// from the session guard; any owner carried in the entry is overwritten.
// Macro values are clamped to non-negative numbers, createdAt is stamped
// server-side, and the stored entry is immutable afterwards.
func (s *FoodLogService) Append(ctx context.Context, userID string, entry types.FoodLog) (types.FoodLog, error) {
	entry.FoodName = strings.TrimSpace(entry.FoodName)
	if entry.FoodName == "" {
		return types.FoodLog{}, fmt.Errorf("%w: foodName required", ErrInvalidInput)
	}

	entry.ID = uuid.NewString()
	entry.UserID = userID
	entry.CreatedAt = time.Now()
	entry.Calories = clampMacro(entry.Calories)
	entry.Protein = clampMacro(entry.Protein)
	entry.Carbs = clampMacro(entry.Carbs)
	entry.Fat = clampMacro(entry.Fat)
	if entry.ImageURL != nil && strings.TrimSpace(*entry.ImageURL) == "" {
		entry.ImageURL = nil
	}

	created, err := s.logs.Create(ctx, entry)
	if err != nil {
		return types.FoodLog{}, err
	}

	if s.events != nil {
		// Best effort: a broker outage must not fail the request.
		if err := s.events.Publish(ctx, EventFoodLogCreated, created); err != nil {
			log.Printf("publish %s: %v", EventFoodLogCreated, err)
		}
	}
	return created, nil
}

// ListByUser returns the user's entries newest first, empty when none.
func (s *FoodLogService) ListByUser(ctx context.Context, userID string) ([]types.FoodLog, error) {
	logs, err := s.logs.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if logs == nil {
		logs = []types.FoodLog{}
	}
	return logs, nil
}

// clampMacro coerces invalid macro values to 0.
func clampMacro(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}

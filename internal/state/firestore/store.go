package firestore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/anshukrra07/CampusCare-sub001/internal/alert"
	"github.com/anshukrra07/CampusCare-sub001/internal/types"
)

const alertsCollection = "alerts"

var _ alert.Store = (*Store)(nil)

// Store keeps alerts in a Firestore "alerts" collection keyed by alert ID.
type Store struct {
	client *firestore.Client
}

// NewStore creates a Firestore-backed alert store for projectID.
func NewStore(ctx context.Context, projectID string) (*Store, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID is required for Firestore store")
	}
	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("creating firestore client: %w", err)
	}
	return &Store{client: client}, nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) alertsCol() *firestore.CollectionRef {
	return s.client.Collection(alertsCollection)
}

type alertDoc struct {
	Severity        string    `firestore:"severity"`
	Reason          string    `firestore:"reason"`
	Message         string    `firestore:"message"`
	UserID          string    `firestore:"user_id"`
	Channel         string    `firestore:"channel"`
	RequestID       string    `firestore:"request_id"`
	CreatedAt       time.Time `firestore:"created_at"`
	Emotion         string    `firestore:"emotion"`
	Intensity       int       `firestore:"intensity"`
	EmotionSource   string    `firestore:"emotion_source"`
	RiskSource      string    `firestore:"risk_source"`
	MatchedKeywords []string  `firestore:"matched_keywords"`
	Triggers        []string  `firestore:"triggers"`
	FailClosed      bool      `firestore:"fail_closed"`
}

func toDoc(a *types.Alert) alertDoc {
	return alertDoc{
		Severity:        string(a.Severity),
		Reason:          a.Reason,
		Message:         a.Message,
		UserID:          a.UserID,
		Channel:         string(a.Channel),
		RequestID:       string(a.RequestID),
		CreatedAt:       a.CreatedAt,
		Emotion:         string(a.Meta.Emotion),
		Intensity:       a.Meta.Intensity,
		EmotionSource:   string(a.Meta.EmotionSource),
		RiskSource:      string(a.Meta.RiskSource),
		MatchedKeywords: a.Meta.MatchedKeywords,
		Triggers:        a.Meta.Triggers,
		FailClosed:      a.Meta.FailClosed,
	}
}

func fromDoc(id string, d alertDoc) *types.Alert {
	return &types.Alert{
		ID:        types.AlertID(id),
		Severity:  types.RiskLevel(d.Severity),
		Reason:    d.Reason,
		Message:   d.Message,
		UserID:    d.UserID,
		Channel:   types.Channel(d.Channel),
		RequestID: types.RequestID(d.RequestID),
		CreatedAt: d.CreatedAt.UTC(),
		Meta: types.AlertMeta{
			Emotion:         types.Emotion(d.Emotion),
			Intensity:       d.Intensity,
			EmotionSource:   types.Source(d.EmotionSource),
			RiskSource:      types.Source(d.RiskSource),
			MatchedKeywords: d.MatchedKeywords,
			Triggers:        d.Triggers,
			FailClosed:      d.FailClosed,
		},
	}
}

// Append creates the alert document. An existing ID is an error.
func (s *Store) Append(ctx context.Context, a *types.Alert) error {
	if _, err := s.alertsCol().Doc(string(a.ID)).Create(ctx, toDoc(a)); err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return fmt.Errorf("alert %s already exists", a.ID)
		}
		return fmt.Errorf("firestore Append: %w", err)
	}
	return nil
}

func (s *Store) Recent(ctx context.Context, limit int) ([]*types.Alert, error) {
	q := s.alertsCol().OrderBy("created_at", firestore.Desc)
	if limit > 0 {
		q = q.Limit(limit)
	}

	iter := q.Documents(ctx)
	defer iter.Stop()

	var out []*types.Alert
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("firestore Recent: %w", err)
		}
		var d alertDoc
		if err := snap.DataTo(&d); err != nil {
			return nil, fmt.Errorf("decode alertDoc: %w", err)
		}
		out = append(out, fromDoc(snap.Ref.ID, d))
	}
	return out, nil
}

package services

import (
	"context"
	"fmt"
	"log"

	"playquestAPI/internal/achievement"
	"playquestAPI/internal/notification"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PushProvider is what the FCM client satisfies; injected so the service
// works without push configured (local dev, tests).
type PushProvider interface {
	SendPush(ctx context.Context, tokens []notification.DeviceToken, title, body string, data map[string]any) error
}

type NotificationService struct {
	db           *pgxpool.Pool
	pushProvider PushProvider
}

func NewNotificationService(db *pgxpool.Pool) *NotificationService {
	return &NotificationService{db: db}
}

func (s *NotificationService) SetPushProvider(p PushProvider) {
	s.pushProvider = p
}

func (s *NotificationService) CreateNotification(ctx context.Context, req *notification.CreateNotificationRequest) (*notification.Notification, error) {
	n := &notification.Notification{
		ID:      uuid.New(),
		UserID:  req.UserID,
		Type:    req.Type,
		Title:   req.Title,
		Message: req.Message,
		Data:    req.Data,
	}

	query := `
	INSERT INTO notifications (id, user_id, type, title, message, is_read, data, created_at)
	VALUES ($1, $2, $3, $4, $5, FALSE, $6, NOW())
	RETURNING created_at
	`
	err := s.db.QueryRow(ctx, query, n.ID, n.UserID, n.Type, n.Title, n.Message, n.Data).Scan(&n.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create notification: %w", err)
	}

	if s.pushProvider != nil {
		tokens, err := s.getDeviceTokens(ctx, req.UserID)
		if err != nil {
			log.Printf("Notification: failed to load device tokens for %s: %v", req.UserID, err)
		} else if err := s.pushProvider.SendPush(ctx, tokens, n.Title, n.Message, n.Data); err != nil {
			log.Printf("Notification: push failed for %s: %v", req.UserID, err)
		}
	}

	return n, nil
}

// NotifyAchievementUnlocked is fire-and-forget: a failed notification
// never fails the unlock that triggered it.
func (s *NotificationService) NotifyAchievementUnlocked(ctx context.Context, userID uuid.UUID, a *achievement.Achievement) {
	_, err := s.CreateNotification(ctx, &notification.CreateNotificationRequest{
		UserID:  userID,
		Type:    notification.NotificationAchievementUnlocked,
		Title:   "Achievement unlocked!",
		Message: fmt.Sprintf("You earned %q", a.Name),
		Data: map[string]any{
			"achievement_id":   a.ID.String(),
			"playcoins_reward": a.PlaycoinsReward,
			"xp_reward":        a.XPReward,
		},
	})
	if err != nil {
		log.Printf("Notification: failed to record unlock for %s: %v", userID, err)
	}
}

// NotifyLevelUp is fire-and-forget like the unlock notification.
func (s *NotificationService) NotifyLevelUp(ctx context.Context, userID uuid.UUID, level int) {
	_, err := s.CreateNotification(ctx, &notification.CreateNotificationRequest{
		UserID:  userID,
		Type:    notification.NotificationLevelUp,
		Title:   "Level up!",
		Message: fmt.Sprintf("You reached level %d", level),
		Data: map[string]any{
			"level": level,
		},
	})
	if err != nil {
		log.Printf("Notification: failed to record level up for %s: %v", userID, err)
	}
}

func (s *NotificationService) getDeviceTokens(ctx context.Context, userID uuid.UUID) ([]notification.DeviceToken, error) {
	rows, err := s.db.Query(ctx, `SELECT token, platform FROM device_tokens WHERE user_id = $1`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tokens []notification.DeviceToken
	for rows.Next() {
		var t notification.DeviceToken
		if err := rows.Scan(&t.Token, &t.Platform); err != nil {
			return nil, err
		}
		tokens = append(tokens, t)
	}
	return tokens, rows.Err()
}

func (s *NotificationService) RegisterDevice(ctx context.Context, userID uuid.UUID, req notification.RegisterDeviceRequest) error {
	query := `
	INSERT INTO device_tokens (id, user_id, token, platform, created_at)
	VALUES ($1, $2, $3, $4, NOW())
	ON CONFLICT (user_id, token) DO UPDATE SET platform = $4
	`
	if _, err := s.db.Exec(ctx, query, uuid.New(), userID, req.Token, req.Platform); err != nil {
		return fmt.Errorf("failed to register device: %w", err)
	}
	return nil
}

func (s *NotificationService) GetNotifications(ctx context.Context, userID uuid.UUID, unreadOnly bool) (*notification.NotificationListResponse, error) {
	query := `
	SELECT id, user_id, type, title, message, is_read, data, created_at
	FROM notifications
	WHERE user_id = $1 AND ($2 = FALSE OR is_read = FALSE)
	ORDER BY created_at DESC
	LIMIT 50
	`

	rows, err := s.db.Query(ctx, query, userID, unreadOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to get notifications: %w", err)
	}
	defer rows.Close()

	resp := &notification.NotificationListResponse{}
	for rows.Next() {
		n := &notification.Notification{}
		if err := rows.Scan(&n.ID, &n.UserID, &n.Type, &n.Title, &n.Message, &n.IsRead, &n.Data, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		if !n.IsRead {
			resp.UnreadCount++
		}
		resp.Notifications = append(resp.Notifications, n)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}

	return resp, nil
}

func (s *NotificationService) MarkAsRead(ctx context.Context, userID, notificationID uuid.UUID) error {
	_, err := s.db.Exec(ctx, `UPDATE notifications SET is_read = TRUE WHERE id = $1 AND user_id = $2`, notificationID, userID)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	return nil
}

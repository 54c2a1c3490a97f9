package handlers

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"

	"playquestAPI/internal/user"
	"playquestAPI/services"
)

// WebhookHandler processes Clerk user lifecycle events so the users table
// stays in sync with the identity provider.
type WebhookHandler struct {
	userService *services.UserService
}

func NewWebhookHandler(userService *services.UserService) *WebhookHandler {
	return &WebhookHandler{userService: userService}
}

func (h *WebhookHandler) HandleClerkWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid_body", "Failed to read request body")
		return
	}

	if !verifyClerkSignature(r, body) {
		log.Printf("Clerk webhook signature verification failed")
		respondWithError(w, http.StatusUnauthorized, "invalid_signature", "Webhook signature verification failed")
		return
	}

	var event user.ClerkWebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid_payload", "Invalid webhook payload")
		return
	}

	log.Printf("Received Clerk webhook: %s", event.Type)

	switch event.Type {
	case "user.created":
		err = h.handleUserCreated(r.Context(), event.Data)
	case "user.updated":
		err = h.handleUserUpdated(r.Context(), event.Data)
	case "user.deleted":
		err = h.handleUserDeleted(r.Context(), event.Data)
	default:
		// Unhandled event types are acknowledged so Clerk stops retrying.
		respondWithJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}

	if err != nil {
		log.Printf("Failed to process %s webhook: %v", event.Type, err)
		respondWithError(w, http.StatusInternalServerError, "webhook_failed", "Failed to process webhook")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"status": "processed"})
}

func (h *WebhookHandler) handleUserCreated(ctx context.Context, data json.RawMessage) error {
	var userData user.ClerkUserData
	if err := json.Unmarshal(data, &userData); err != nil {
		return fmt.Errorf("failed to parse user data: %w", err)
	}

	email, verified := primaryEmail(&userData)

	username := userData.Username
	if username == "" {
		username = strings.TrimSpace(userData.FirstName + " " + userData.LastName)
	}

	imageURL := userData.ImageURL
	if imageURL == "" {
		imageURL = userData.ProfileImageURL
	}

	req := &user.CreateUserRequest{
		ClerkID:   userData.ID,
		Email:     email,
		Username:  username,
		FirstName: userData.FirstName,
		LastName:  userData.LastName,
		ImageURL:  imageURL,
		Role:      user.Role(userData.PublicMetadata.Role),
	}

	if _, err := h.userService.CreateUser(ctx, req); err != nil {
		return err
	}

	if verified {
		if err := h.userService.UpdateEmailVerification(ctx, userData.ID, true); err != nil {
			log.Printf("Failed to mark email verified for %s: %v", userData.ID, err)
		}
	}

	return nil
}

func (h *WebhookHandler) handleUserUpdated(ctx context.Context, data json.RawMessage) error {
	var userData user.ClerkUserData
	if err := json.Unmarshal(data, &userData); err != nil {
		return fmt.Errorf("failed to parse user data: %w", err)
	}

	imageURL := userData.ImageURL
	if imageURL == "" {
		imageURL = userData.ProfileImageURL
	}

	req := &user.UpdateProfileRequest{
		Username:  userData.Username,
		FirstName: userData.FirstName,
		LastName:  userData.LastName,
		ImageURL:  imageURL,
	}

	if _, err := h.userService.UpdateProfileByClerkID(ctx, userData.ID, req); err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			// Updated before created can arrive out of order; create instead.
			return h.handleUserCreated(ctx, data)
		}
		return err
	}

	if _, verified := primaryEmail(&userData); verified {
		if err := h.userService.UpdateEmailVerification(ctx, userData.ID, true); err != nil {
			log.Printf("Failed to mark email verified for %s: %v", userData.ID, err)
		}
	}

	return nil
}

func (h *WebhookHandler) handleUserDeleted(ctx context.Context, data json.RawMessage) error {
	var deleted struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(data, &deleted); err != nil {
		return fmt.Errorf("failed to parse deletion data: %w", err)
	}

	err := h.userService.DeleteUserByClerkID(ctx, deleted.ID)
	if errors.Is(err, services.ErrUserNotFound) {
		return nil
	}
	return err
}

func primaryEmail(userData *user.ClerkUserData) (string, bool) {
	if len(userData.EmailAddresses) == 0 {
		return "", false
	}
	primary := userData.EmailAddresses[0]
	return primary.EmailAddress, primary.Verification.Status == "verified"
}

// verifyClerkSignature checks the svix HMAC on the raw body. Verification is
// skipped when CLERK_WEBHOOK_SECRET is unset (local development).
func verifyClerkSignature(r *http.Request, body []byte) bool {
	secret := os.Getenv("CLERK_WEBHOOK_SECRET")
	if secret == "" {
		return true
	}

	svixID := r.Header.Get("svix-id")
	svixTimestamp := r.Header.Get("svix-timestamp")
	svixSignature := r.Header.Get("svix-signature")
	if svixID == "" || svixTimestamp == "" || svixSignature == "" {
		return false
	}

	// Svix secrets are prefixed with "whsec_" and base64 encoded.
	key, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(secret, "whsec_"))
	if err != nil {
		return false
	}

	signedContent := fmt.Sprintf("%s.%s.%s", svixID, svixTimestamp, body)
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(signedContent))
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	for _, part := range strings.Split(svixSignature, " ") {
		sig := strings.TrimPrefix(part, "v1,")
		if hmac.Equal([]byte(sig), []byte(expected)) {
			return true
		}
	}
	return false
}

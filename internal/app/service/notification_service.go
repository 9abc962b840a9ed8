package service

import (
	"context"

	"github.com/garka/garka-backend/internal/app/model"
	"github.com/garka/garka-backend/internal/app/repository"
	"github.com/garka/garka-backend/internal/websocket"
	"github.com/garka/garka-backend/pkg/logger"
)

const (
	EventVerificationPaid     = "verification.paid"
	EventVerificationClaimed  = "verification.claimed"
	EventVerificationApproved = "verification.approved"
	EventReservationExpired   = "verification.expired"
)

// NotificationService tells the parties of a verification about lifecycle
// changes. Delivery is best effort and never fails the caller.
type NotificationService interface {
	VerificationPaid(ctx context.Context, v *model.VerificationRequest)
	VerificationClaimed(ctx context.Context, v *model.VerificationRequest)
	VerificationApproved(ctx context.Context, v *model.VerificationRequest, completed bool)
	ReservationExpired(ctx context.Context, v *model.VerificationRequest)
}

type notificationService struct {
	userRepo    repository.UserRepository
	profileRepo repository.ProfileRepository
	hub         *websocket.Hub
}

// NewNotificationService builds the notifier. hub may be nil, in which case
// only the email and SMS stubs run.
func NewNotificationService(userRepo repository.UserRepository, profileRepo repository.ProfileRepository, hub *websocket.Hub) NotificationService {
	return &notificationService{
		userRepo:    userRepo,
		profileRepo: profileRepo,
		hub:         hub,
	}
}

func (s *notificationService) VerificationPaid(ctx context.Context, v *model.VerificationRequest) {
	s.notify(ctx, v.BuyerID, websocket.Event{
		Type:           EventVerificationPaid,
		VerificationID: v.ID,
		Message:        "Payment received. Your verification request is now in escrow.",
	})
	if userID, ok := s.agentUserID(ctx, v.AgentID); ok {
		s.notify(ctx, userID, websocket.Event{
			Type:           EventVerificationPaid,
			VerificationID: v.ID,
			Message:        "A buyer paid for verification of your listing.",
		})
	}
}

func (s *notificationService) VerificationClaimed(ctx context.Context, v *model.VerificationRequest) {
	s.notify(ctx, v.BuyerID, websocket.Event{
		Type:           EventVerificationClaimed,
		VerificationID: v.ID,
		Message:        "Your verification request has been picked up.",
		Data:           v.ClaimedBy,
	})
}

func (s *notificationService) VerificationApproved(ctx context.Context, v *model.VerificationRequest, completed bool) {
	msg := "Your verification request was approved."
	if completed {
		msg = "Your verification is complete. The property location is now available."
	}
	s.notify(ctx, v.BuyerID, websocket.Event{
		Type:           EventVerificationApproved,
		VerificationID: v.ID,
		Message:        msg,
		Data:           map[string]bool{"completed": completed},
	})

	if claimant := v.Claimant(); claimant != nil && completed {
		if userID, ok := s.claimantUserID(ctx, *claimant); ok {
			s.notify(ctx, userID, websocket.Event{
				Type:           EventVerificationApproved,
				VerificationID: v.ID,
				Message:        "A verification you claimed was approved. Your payout is being processed.",
			})
		}
	}
}

func (s *notificationService) ReservationExpired(ctx context.Context, v *model.VerificationRequest) {
	s.notify(ctx, v.BuyerID, websocket.Event{
		Type:           EventReservationExpired,
		VerificationID: v.ID,
		Message:        "Your reservation expired before approval. You can submit the request again.",
	})
}

func (s *notificationService) notify(ctx context.Context, userID uint, event websocket.Event) {
	if userID == 0 {
		return
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		logger.Warn("Notification recipient not found", map[string]interface{}{
			"user_id": userID,
			"type":    event.Type,
		})
	} else {
		// email and SMS providers are not integrated yet; the log is the outbox
		logger.Info("Email notification queued", map[string]interface{}{
			"to":              user.Email,
			"type":            event.Type,
			"verification_id": event.VerificationID,
		})
		if user.Phone != "" {
			logger.Info("SMS notification queued", map[string]interface{}{
				"to":              user.Phone,
				"type":            event.Type,
				"verification_id": event.VerificationID,
			})
		}
	}

	if s.hub != nil {
		_ = s.hub.SendToUser(userID, event)
	}
}

func (s *notificationService) agentUserID(ctx context.Context, agentID uint) (uint, bool) {
	if agentID == 0 {
		return 0, false
	}
	agent, err := s.profileRepo.FindAgentByID(ctx, agentID)
	if err != nil {
		return 0, false
	}
	return agent.UserID, true
}

func (s *notificationService) claimantUserID(ctx context.Context, c model.Claimant) (uint, bool) {
	switch c.Kind {
	case model.ClaimantAgent:
		return s.agentUserID(ctx, c.ID)
	case model.ClaimantDealInitiator:
		di, err := s.profileRepo.FindDealInitiatorByID(ctx, c.ID)
		if err != nil {
			return 0, false
		}
		return di.UserID, true
	}
	return 0, false
}

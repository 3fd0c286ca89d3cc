package remote

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"liyu1981.xyz/sos-safety-service/pkg/common"
	"liyu1981.xyz/sos-safety-service/pkg/models"
)

type userDocument struct {
	ID                        string   `json:"id,omitempty"`
	Name                      string   `json:"name"`
	PhoneNumber               string   `json:"phoneNumber"`
	Email                     *string  `json:"email,omitempty"`
	FcmToken                  *string  `json:"fcmToken,omitempty"`
	IsOnline                  bool     `json:"isOnline"`
	LastSeen                  *int64   `json:"lastSeen,omitempty"`
	EmergencyContacts         []string `json:"emergencyContacts"`
	AllowCommunityAlerts      bool     `json:"allowCommunityAlerts"`
	ShareLocationWithContacts bool     `json:"shareLocationWithContacts"`
	AutoCallEmergencyServices bool     `json:"autoCallEmergencyServices"`
	CreatedAt                 *int64   `json:"createdAt,omitempty"`
	UpdatedAt                 *int64   `json:"updatedAt,omitempty"`
}

func toUserDocument(user *models.UserProfile) (Document, error) {
	contacts := user.EmergencyContacts
	if contacts == nil {
		contacts = []string{}
	}
	return encodeDocument(userDocument{
		Name:                      user.Name,
		PhoneNumber:               user.PhoneNumber,
		Email:                     user.Email,
		FcmToken:                  user.FcmToken,
		IsOnline:                  user.IsOnline,
		LastSeen:                  millisOf(user.LastSeen),
		EmergencyContacts:         contacts,
		AllowCommunityAlerts:      user.AllowCommunityAlerts,
		ShareLocationWithContacts: user.ShareLocationWithContacts,
		AutoCallEmergencyServices: user.AutoCallEmergencyServices,
	})
}

func fromUserDocument(doc Document) (*models.UserProfile, error) {
	var wire userDocument
	if err := decodeDocument(doc, &wire); err != nil {
		return nil, err
	}
	contacts := wire.EmergencyContacts
	if contacts == nil {
		contacts = []string{}
	}
	return &models.UserProfile{
		ID:                        wire.ID,
		Name:                      wire.Name,
		PhoneNumber:               wire.PhoneNumber,
		Email:                     wire.Email,
		FcmToken:                  wire.FcmToken,
		IsOnline:                  wire.IsOnline,
		LastSeen:                  millisPtr(wire.LastSeen),
		EmergencyContacts:         contacts,
		AllowCommunityAlerts:      wire.AllowCommunityAlerts,
		ShareLocationWithContacts: wire.ShareLocationWithContacts,
		AutoCallEmergencyServices: wire.AutoCallEmergencyServices,
		CreatedAt:                 millisPtr(wire.CreatedAt),
		UpdatedAt:                 millisPtr(wire.UpdatedAt),
	}, nil
}

// NewUserProfile has the defaults a fresh account starts with.
func NewUserProfile(name, phoneNumber string) *models.UserProfile {
	return &models.UserProfile{
		Name:                      name,
		PhoneNumber:               phoneNumber,
		EmergencyContacts:         []string{},
		AllowCommunityAlerts:      true,
		ShareLocationWithContacts: true,
	}
}

// UserDirectory keeps user profiles, push tokens and contact invitations.
type UserDirectory struct {
	store Store
}

func NewUserDirectory(store Store) *UserDirectory {
	return &UserDirectory{store: store}
}

func validateUser(user *models.UserProfile) error {
	if strings.TrimSpace(user.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidDocument)
	}
	if strings.TrimSpace(user.PhoneNumber) == "" {
		return fmt.Errorf("%w: phone number is required", ErrInvalidDocument)
	}
	return nil
}

func (d *UserDirectory) CreateUser(ctx context.Context, user *models.UserProfile) (string, error) {
	if err := validateUser(user); err != nil {
		return "", remoteError("create user", err)
	}
	doc, err := toUserDocument(user)
	if err != nil {
		return "", remoteError("create user", err)
	}
	id, err := d.store.Add(ctx, common.CollectionUsers, doc)
	if err != nil {
		sinkLogger().Error("Failed to create user", zap.Error(err))
		return "", remoteError("create user", err)
	}
	user.ID = id
	return id, nil
}

// UpdateUser replaces the whole profile, creating it under id when it does
// not exist yet.
func (d *UserDirectory) UpdateUser(ctx context.Context, id string, user *models.UserProfile) error {
	if id == "" {
		return remoteError("update user", fmt.Errorf("%w: empty user id", ErrInvalidDocument))
	}
	if err := validateUser(user); err != nil {
		return remoteError("update user", err)
	}
	doc, err := toUserDocument(user)
	if err != nil {
		return remoteError("update user", err)
	}
	if err := d.store.Set(ctx, common.CollectionUsers, id, doc, false); err != nil {
		sinkLogger().Error("Failed to update user", zap.String("user_id", id), zap.Error(err))
		return remoteError("update user", err)
	}
	return nil
}

func (d *UserDirectory) GetUser(ctx context.Context, id string) (*models.UserProfile, error) {
	doc, err := d.store.Get(ctx, common.CollectionUsers, id)
	if err != nil {
		return nil, remoteError("get user", err)
	}
	user, err := fromUserDocument(doc)
	if err != nil {
		return nil, remoteError("get user", err)
	}
	return user, nil
}

// UpdateFcmToken stores the device push token of an existing user.
func (d *UserDirectory) UpdateFcmToken(ctx context.Context, id, token string) error {
	if strings.TrimSpace(token) == "" {
		return remoteError("update token", fmt.Errorf("%w: empty token", ErrInvalidDocument))
	}
	if _, err := d.store.Get(ctx, common.CollectionUsers, id); err != nil {
		return remoteError("update token", err)
	}
	if err := d.store.Set(ctx, common.CollectionUsers, id, Document{"fcmToken": token}, true); err != nil {
		return remoteError("update token", err)
	}
	return nil
}

type invitationDocument struct {
	ID           string                  `json:"id,omitempty"`
	InvitedBy    string                  `json:"invitedBy"`
	InviteePhone string                  `json:"inviteePhone"`
	Status       models.InvitationStatus `json:"status"`
	CreatedAt    int64                   `json:"createdAt,omitempty"`
}

// CreateInvitation records a pending invitation unless another status is
// given.
func (d *UserDirectory) CreateInvitation(ctx context.Context, invitation *models.Invitation) (string, error) {
	if invitation.InvitedBy == "" || strings.TrimSpace(invitation.InviteePhone) == "" {
		return "", remoteError("create invitation", fmt.Errorf("%w: inviter and invitee phone are required", ErrInvalidDocument))
	}
	if invitation.Status == "" {
		invitation.Status = models.InvitationPending
	}
	if !invitation.Status.Valid() {
		return "", remoteError("create invitation", fmt.Errorf("%w: unknown status %q", ErrInvalidDocument, invitation.Status))
	}
	doc, err := encodeDocument(invitationDocument{
		InvitedBy:    invitation.InvitedBy,
		InviteePhone: invitation.InviteePhone,
		Status:       invitation.Status,
	})
	if err != nil {
		return "", remoteError("create invitation", err)
	}
	id, err := d.store.Add(ctx, common.CollectionInvitations, doc)
	if err != nil {
		sinkLogger().Error("Failed to create invitation", zap.Error(err))
		return "", remoteError("create invitation", err)
	}
	invitation.ID = id

	stored, err := d.store.Get(ctx, common.CollectionInvitations, id)
	if err != nil {
		sinkLogger().Warn("Failed to read back invitation", zap.String("invitation_id", id), zap.Error(err))
		return id, nil
	}
	var wire invitationDocument
	if err := decodeDocument(stored, &wire); err == nil {
		invitation.CreatedAt = time.UnixMilli(wire.CreatedAt)
	}
	return id, nil
}

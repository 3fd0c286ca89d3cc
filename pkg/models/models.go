package models

import "time"

type TriggerType string

const (
	TriggerTypeManual         TriggerType = "manual"
	TriggerTypeShake          TriggerType = "shake"
	TriggerTypePanicButton    TriggerType = "panic_button"
	TriggerTypeRouteDeviation TriggerType = "route_deviation"
)

var TriggerTypes = []TriggerType{
	TriggerTypeManual,
	TriggerTypeShake,
	TriggerTypePanicButton,
	TriggerTypeRouteDeviation,
}

func (t TriggerType) Valid() bool {
	for _, known := range TriggerTypes {
		if t == known {
			return true
		}
	}
	return false
}

type Contact struct {
	ID                 uint      `gorm:"primaryKey" json:"id"`
	Name               string    `gorm:"not null" json:"name"`
	PhoneNumber        string    `gorm:"index;not null" json:"phone_number"`
	IsPrimary          bool      `gorm:"index;not null;default:false" json:"is_primary"`
	IsEmergencyService bool      `gorm:"not null;default:false" json:"is_emergency_service"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// LocationSnapshot is one fix. Rows in location_history are snapshots;
// SosEvent embeds the same fields by value.
type LocationSnapshot struct {
	ID            uint      `gorm:"primaryKey" json:"id,omitempty"`
	Latitude      float64   `gorm:"not null" json:"latitude"`
	Longitude     float64   `gorm:"not null" json:"longitude"`
	Accuracy      float64   `json:"accuracy"`
	Altitude      *float64  `json:"altitude,omitempty"`
	Speed         *float64  `json:"speed,omitempty"`
	Bearing       *float64  `json:"bearing,omitempty"`
	Address       *string   `json:"address,omitempty"`
	Timestamp     time.Time `gorm:"index" json:"timestamp"`
	IsTracking    bool      `gorm:"not null;default:false" json:"is_tracking"`
	IsSosLocation bool      `gorm:"not null;default:false" json:"is_sos_location"`
}

func (LocationSnapshot) TableName() string {
	return "location_history"
}

type SosEvent struct {
	ID       uint        `gorm:"primaryKey" json:"id"`
	RemoteID *string     `gorm:"index" json:"remote_id,omitempty"`
	Type     TriggerType `gorm:"type:varchar(20);index;check:type IN ('manual','shake','panic_button','route_deviation')" json:"type"`

	Latitude      float64  `json:"latitude"`
	Longitude     float64  `json:"longitude"`
	Accuracy      float64  `json:"accuracy"`
	Altitude      *float64 `json:"altitude,omitempty"`
	Speed         *float64 `json:"speed,omitempty"`
	Bearing       *float64 `json:"bearing,omitempty"`
	Address       *string  `json:"address,omitempty"`
	IsTracking    bool     `gorm:"not null;default:false" json:"is_tracking"`
	IsSosLocation bool     `gorm:"not null;default:false" json:"is_sos_location"`

	Timestamp               time.Time      `gorm:"index" json:"timestamp"`
	Notes                   *string        `json:"notes,omitempty"`
	IsResolved              bool           `gorm:"index;not null;default:false" json:"is_resolved"`
	ResolvedAt              *time.Time     `json:"resolved_at,omitempty"`
	NotifiedContacts        []uint         `gorm:"serializer:json" json:"notified_contacts"`
	EmergencyServicesCalled bool           `gorm:"not null;default:false" json:"emergency_services_called"`
	ResponseTime            *time.Duration `json:"response_time,omitempty"`
}

// WithLocation copies the snapshot fields into the event.
func (e *SosEvent) WithLocation(loc LocationSnapshot) *SosEvent {
	e.Latitude = loc.Latitude
	e.Longitude = loc.Longitude
	e.Accuracy = loc.Accuracy
	e.Altitude = loc.Altitude
	e.Speed = loc.Speed
	e.Bearing = loc.Bearing
	e.Address = loc.Address
	e.IsTracking = loc.IsTracking
	e.IsSosLocation = loc.IsSosLocation
	return e
}

func (e *SosEvent) Location() LocationSnapshot {
	return LocationSnapshot{
		Latitude:      e.Latitude,
		Longitude:     e.Longitude,
		Accuracy:      e.Accuracy,
		Altitude:      e.Altitude,
		Speed:         e.Speed,
		Bearing:       e.Bearing,
		Address:       e.Address,
		Timestamp:     e.Timestamp,
		IsTracking:    e.IsTracking,
		IsSosLocation: e.IsSosLocation,
	}
}

type SchemaVersion struct {
	Version   int `gorm:"primaryKey"`
	AppliedAt time.Time
}

// RemoteEvent is the mirrored sos_events document as the document store
// returns it.
type RemoteEvent struct {
	ID               string      `json:"id"`
	UserID           string      `json:"userId"`
	Type             TriggerType `json:"type"`
	Latitude         float64     `json:"latitude"`
	Longitude        float64     `json:"longitude"`
	Address          *string     `json:"address,omitempty"`
	IsResolved       bool        `json:"isResolved"`
	ResolvedAt       *time.Time  `json:"resolvedAt,omitempty"`
	Notes            *string     `json:"notes,omitempty"`
	ContactsNotified []uint      `json:"contactsNotified"`
	EmergencyCalled  bool        `json:"emergencyServicesCalled"`
	ResponseTimeMs   *int64      `json:"responseTime,omitempty"`
	Timestamp        time.Time   `json:"timestamp"`
	CreatedAt        *time.Time  `json:"createdAt,omitempty"`
	UpdatedAt        *time.Time  `json:"updatedAt,omitempty"`
}

type CommunityAlertType string

const (
	AlertTypeSuspiciousActivity CommunityAlertType = "suspicious_activity"
	AlertTypeAccident           CommunityAlertType = "accident"
	AlertTypeHarassment         CommunityAlertType = "harassment"
	AlertTypeOther              CommunityAlertType = "other"
)

var CommunityAlertTypes = []CommunityAlertType{
	AlertTypeSuspiciousActivity,
	AlertTypeAccident,
	AlertTypeHarassment,
	AlertTypeOther,
}

func (t CommunityAlertType) Valid() bool {
	for _, known := range CommunityAlertTypes {
		if t == known {
			return true
		}
	}
	return false
}

// CommunityAlert is a safety report other users see when they are close
// enough to it.
type CommunityAlert struct {
	ID          string             `json:"id"`
	UserID      string             `json:"userId"`
	AlertType   CommunityAlertType `json:"alertType"`
	Title       string             `json:"title"`
	Description string             `json:"description"`
	Latitude    float64            `json:"latitude"`
	Longitude   float64            `json:"longitude"`
	Address     *string            `json:"address,omitempty"`
	IsVerified  bool               `json:"isVerified"`
	VerifiedBy  *string            `json:"verifiedBy,omitempty"`
	IsResolved  bool               `json:"isResolved"`
	ResolvedAt  *time.Time         `json:"resolvedAt,omitempty"`
	Upvotes     int                `json:"upvotes"`
	Downvotes   int                `json:"downvotes"`
	ReportedBy  []string           `json:"reportedBy"`
	Timestamp   time.Time          `json:"timestamp"`
}

// LocationShare is one user's position shared with another user until it
// is stopped or expires.
type LocationShare struct {
	ID               string     `json:"id"`
	UserID           string     `json:"userId"`
	SharedWithUserID string     `json:"sharedWithUserId"`
	Latitude         float64    `json:"latitude"`
	Longitude        float64    `json:"longitude"`
	Address          *string    `json:"address,omitempty"`
	IsActive         bool       `json:"isActive"`
	ExpiresAt        *time.Time `json:"expiresAt,omitempty"`
	TripName         *string    `json:"tripName,omitempty"`
	EstimatedArrival *time.Time `json:"estimatedArrival,omitempty"`
	Timestamp        time.Time  `json:"timestamp"`
}

// Active reports whether the share is still visible at now.
func (s LocationShare) Active(now time.Time) bool {
	return s.IsActive && (s.ExpiresAt == nil || s.ExpiresAt.After(now))
}

// UserProfile is the users document of one account.
type UserProfile struct {
	ID                        string     `json:"id"`
	Name                      string     `json:"name"`
	PhoneNumber               string     `json:"phoneNumber"`
	Email                     *string    `json:"email,omitempty"`
	FcmToken                  *string    `json:"fcmToken,omitempty"`
	IsOnline                  bool       `json:"isOnline"`
	LastSeen                  *time.Time `json:"lastSeen,omitempty"`
	EmergencyContacts         []string   `json:"emergencyContacts"`
	AllowCommunityAlerts      bool       `json:"allowCommunityAlerts"`
	ShareLocationWithContacts bool       `json:"shareLocationWithContacts"`
	AutoCallEmergencyServices bool       `json:"autoCallEmergencyServices"`
	CreatedAt                 *time.Time `json:"createdAt,omitempty"`
	UpdatedAt                 *time.Time `json:"updatedAt,omitempty"`
}

type InvitationStatus string

const (
	InvitationPending  InvitationStatus = "pending"
	InvitationAccepted InvitationStatus = "accepted"
	InvitationDeclined InvitationStatus = "declined"
)

func (s InvitationStatus) Valid() bool {
	switch s {
	case InvitationPending, InvitationAccepted, InvitationDeclined:
		return true
	}
	return false
}

// Invitation asks someone, by phone number, to join as a contact.
type Invitation struct {
	ID           string           `json:"id"`
	InvitedBy    string           `json:"invitedBy"`
	InviteePhone string           `json:"inviteePhone"`
	Status       InvitationStatus `json:"status"`
	CreatedAt    time.Time        `json:"createdAt"`
}

// Notification is one outbound alert to a contact.
type Notification struct {
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data,omitempty"`
}

type DeliveryOutcome struct {
	ContactID   uint   `json:"contact_id"`
	PhoneNumber string `json:"phone_number"`
	Delivered   bool   `json:"delivered"`
	Error       string `json:"error,omitempty"`
}

type PushType string

const (
	PushTypeSosAlert         PushType = "sos_alert"
	PushTypeCommunityAlert   PushType = "community_alert"
	PushTypeSafetyCheck      PushType = "safety_check"
	PushTypeTestNotification PushType = "test_notification"
	PushTypeLocationShare    PushType = "location_share"
)

// PushMessage is an inbound message from the push channel.
type PushMessage struct {
	Type  PushType          `json:"type"`
	Title string            `json:"title,omitempty"`
	Body  string            `json:"body,omitempty"`
	Data  map[string]string `json:"data,omitempty"`
}

type NotificationPriority string

const (
	PriorityDefault NotificationPriority = "default"
	PriorityHigh    NotificationPriority = "high"
	PriorityMax     NotificationPriority = "max"
)

// LocalNotification is what the UI shell renders for a push message.
type LocalNotification struct {
	Channel  string               `json:"channel"`
	Title    string               `json:"title"`
	Body     string               `json:"body"`
	Priority NotificationPriority `json:"priority"`
	Category string               `json:"category,omitempty"`
	Vibrate  []int64              `json:"vibrate,omitempty"`
	Data     map[string]string    `json:"data,omitempty"`
}

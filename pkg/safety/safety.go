package safety

import (
	"context"
	"time"

	"liyu1981.xyz/sos-safety-service/pkg/db"
	"liyu1981.xyz/sos-safety-service/pkg/models"
)

type IContact interface {
	Insert(ctx context.Context, contact *models.Contact) error
	Update(ctx context.Context, contact *models.Contact) error
	Delete(ctx context.Context, id uint) error
	GetAll(ctx context.Context) ([]models.Contact, error)
	GetByID(ctx context.Context, id uint) (*models.Contact, error)
	GetByPhone(ctx context.Context, phone string) (*models.Contact, error)
	GetPrimary(ctx context.Context) ([]models.Contact, error)
	EmergencyServiceContacts(ctx context.Context) ([]models.Contact, error)
	Count(ctx context.Context) (int64, error)
	SetPrimary(ctx context.Context, id uint) error
	AddDefaultEmergencyContacts(ctx context.Context, emergencyNumber string) error
}

type IEvent interface {
	Insert(ctx context.Context, event *models.SosEvent) error
	Update(ctx context.Context, event *models.SosEvent) error
	GetByID(ctx context.Context, id uint) (*models.SosEvent, error)
	GetByDateRange(ctx context.Context, from, to time.Time) ([]models.SosEvent, error)
	GetByType(ctx context.Context, triggerType models.TriggerType) ([]models.SosEvent, error)
	GetLatest(ctx context.Context) (*models.SosEvent, error)
	GetActive(ctx context.Context) ([]models.SosEvent, error)
	CountSince(ctx context.Context, since time.Time) (int64, error)
	Resolve(ctx context.Context, id uint, notes *string, at time.Time) (*models.SosEvent, error)
	UpdateNotes(ctx context.Context, id uint, notes string) (*models.SosEvent, error)
	SetNotifiedContacts(ctx context.Context, id uint, contactIDs []uint) error
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type IHistory interface {
	Insert(ctx context.Context, snapshot *models.LocationSnapshot) error
	GetLatest(ctx context.Context) (*models.LocationSnapshot, error)
	GetByDateRange(ctx context.Context, from, to time.Time) ([]models.LocationSnapshot, error)
	RecentTracking(ctx context.Context, limit int) ([]models.LocationSnapshot, error)
	CountSince(ctx context.Context, since time.Time) (int64, error)
	ClearTrackingFlags(ctx context.Context) error
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// Safety groups the local stores over one database handle.
type Safety struct {
	Db      db.DB
	Contact IContact
	Event   IEvent
	History IHistory
}

type ServiceOpts struct {
	Contact IContact
	Event   IEvent
	History IHistory
}

// New wires the default gorm-backed stores.
func New(database *db.DB) *Safety {
	s := &Safety{Db: *database}
	return s.WithServices(ServiceOpts{
		Contact: s.GetIContact(),
		Event:   s.GetIEvent(),
		History: s.GetIHistory(),
	})
}

func (s *Safety) WithServices(opts ServiceOpts) *Safety {
	if opts.Contact != nil {
		s.Contact = opts.Contact
	}
	if opts.Event != nil {
		s.Event = opts.Event
	}
	if opts.History != nil {
		s.History = opts.History
	}
	return s
}

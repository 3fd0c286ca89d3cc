package safety

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"liyu1981.xyz/sos-safety-service/pkg/common"
	"liyu1981.xyz/sos-safety-service/pkg/models"
)

var nonDigits = regexp.MustCompile(`[^0-9]`)

// ValidatePhoneNumber accepts numbers with at least ten digits.
func ValidatePhoneNumber(phone string) bool {
	return strings.TrimSpace(phone) != "" && len(nonDigits.ReplaceAllString(phone, "")) >= 10
}

// NormalizePhoneNumber turns North American numbers into E.164 and leaves
// everything else as given.
func NormalizePhoneNumber(phone string) string {
	digits := nonDigits.ReplaceAllString(phone, "")
	switch {
	case len(digits) == 10:
		return "+1" + digits
	case len(digits) == 11 && strings.HasPrefix(digits, "1"):
		return "+" + digits
	default:
		return strings.TrimSpace(phone)
	}
}

func contactLogger() *zap.Logger {
	return common.GetCategoryLogger(common.LoggerNameSosCore, common.LoggerCategorySosContact)
}

func prepareContact(contact *models.Contact) error {
	contact.Name = strings.TrimSpace(contact.Name)
	if contact.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidContact)
	}
	if contact.IsEmergencyService {
		contact.PhoneNumber = strings.TrimSpace(contact.PhoneNumber)
		if contact.PhoneNumber == "" {
			return fmt.Errorf("%w: phone number is required", ErrInvalidContact)
		}
		return nil
	}
	if !ValidatePhoneNumber(contact.PhoneNumber) {
		return fmt.Errorf("%w: phone number %q needs at least 10 digits", ErrInvalidContact, contact.PhoneNumber)
	}
	contact.PhoneNumber = NormalizePhoneNumber(contact.PhoneNumber)
	return nil
}

func clearPrimaryFlags(tx *gorm.DB, exceptID uint) error {
	q := tx.Model(&models.Contact{}).Where("is_primary = ?", true)
	if exceptID != 0 {
		q = q.Where("id <> ?", exceptID)
	}
	return q.Update("is_primary", false).Error
}

func (s *Safety) insertContact(ctx context.Context, contact *models.Contact) error {
	logger := contactLogger()

	if err := prepareContact(contact); err != nil {
		return err
	}
	contact.ID = 0

	err := s.Db.Conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if contact.IsPrimary {
			if err := clearPrimaryFlags(tx, 0); err != nil {
				return err
			}
		}
		return tx.Create(contact).Error
	})
	if err != nil {
		return storeError(err)
	}

	logger.Info("Contact saved", zap.Reflect("contact", contact))
	return nil
}

func (s *Safety) updateContact(ctx context.Context, contact *models.Contact) error {
	logger := contactLogger()

	if contact.ID == 0 {
		return fmt.Errorf("%w: id is required", ErrInvalidContact)
	}
	if err := prepareContact(contact); err != nil {
		return err
	}

	err := s.Db.Conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.Contact
		if err := tx.First(&existing, contact.ID).Error; err != nil {
			return err
		}
		if contact.IsPrimary {
			if err := clearPrimaryFlags(tx, contact.ID); err != nil {
				return err
			}
		}
		contact.CreatedAt = existing.CreatedAt
		return tx.Save(contact).Error
	})
	if err != nil {
		return storeError(err)
	}

	logger.Info("Contact updated", zap.Reflect("contact", contact))
	return nil
}

func (s *Safety) deleteContact(ctx context.Context, id uint) error {
	result := s.Db.Conn.WithContext(ctx).Delete(&models.Contact{}, id)
	if result.Error != nil {
		return storeError(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	contactLogger().Info("Contact deleted", zap.Uint("id", id))
	return nil
}

func (s *Safety) getAllContacts(ctx context.Context) ([]models.Contact, error) {
	var contacts []models.Contact
	err := s.Db.Conn.WithContext(ctx).
		Order("is_primary desc").
		Order("name asc").
		Order("id asc").
		Find(&contacts).Error
	return contacts, storeError(err)
}

func (s *Safety) getContact(ctx context.Context, query string, args ...any) (*models.Contact, error) {
	var contact models.Contact
	if err := s.Db.Conn.WithContext(ctx).Where(query, args...).First(&contact).Error; err != nil {
		return nil, storeError(err)
	}
	return &contact, nil
}

func (s *Safety) findContacts(ctx context.Context, query string, args ...any) ([]models.Contact, error) {
	var contacts []models.Contact
	err := s.Db.Conn.WithContext(ctx).Where(query, args...).Order("name asc").Find(&contacts).Error
	return contacts, storeError(err)
}

func (s *Safety) countContacts(ctx context.Context) (int64, error) {
	var count int64
	err := s.Db.Conn.WithContext(ctx).Model(&models.Contact{}).Count(&count).Error
	return count, storeError(err)
}

// setPrimary clears every primary flag and sets the one on id inside a
// single transaction, so readers never observe zero or two primaries.
func (s *Safety) setPrimary(ctx context.Context, id uint) error {
	logger := contactLogger()

	err := s.Db.Conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var contact models.Contact
		if err := tx.First(&contact, id).Error; err != nil {
			return err
		}
		if err := clearPrimaryFlags(tx, id); err != nil {
			return err
		}
		return tx.Model(&contact).Update("is_primary", true).Error
	})
	if err != nil {
		return storeError(err)
	}

	logger.Info("Primary contact set", zap.Uint("id", id))
	return nil
}

func (s *Safety) addDefaultEmergencyContacts(ctx context.Context, emergencyNumber string) error {
	defaults := []models.Contact{
		{Name: "Emergency Services", PhoneNumber: emergencyNumber, IsEmergencyService: true},
	}

	for i := range defaults {
		_, err := s.getContact(ctx, "phone_number = ?", defaults[i].PhoneNumber)
		if err == nil {
			continue
		}
		if !errors.Is(err, ErrNotFound) {
			return err
		}
		if err := s.insertContact(ctx, &defaults[i]); err != nil {
			return err
		}
	}
	return nil
}

type IContactImpl struct {
	safety *Safety
}

func (ic *IContactImpl) Insert(ctx context.Context, contact *models.Contact) error {
	return ic.safety.insertContact(ctx, contact)
}

func (ic *IContactImpl) Update(ctx context.Context, contact *models.Contact) error {
	return ic.safety.updateContact(ctx, contact)
}

func (ic *IContactImpl) Delete(ctx context.Context, id uint) error {
	return ic.safety.deleteContact(ctx, id)
}

func (ic *IContactImpl) GetAll(ctx context.Context) ([]models.Contact, error) {
	return ic.safety.getAllContacts(ctx)
}

func (ic *IContactImpl) GetByID(ctx context.Context, id uint) (*models.Contact, error) {
	return ic.safety.getContact(ctx, "id = ?", id)
}

func (ic *IContactImpl) GetByPhone(ctx context.Context, phone string) (*models.Contact, error) {
	return ic.safety.getContact(ctx, "phone_number = ?", phone)
}

func (ic *IContactImpl) GetPrimary(ctx context.Context) ([]models.Contact, error) {
	return ic.safety.findContacts(ctx, "is_primary = ?", true)
}

func (ic *IContactImpl) EmergencyServiceContacts(ctx context.Context) ([]models.Contact, error) {
	return ic.safety.findContacts(ctx, "is_emergency_service = ?", true)
}

func (ic *IContactImpl) Count(ctx context.Context) (int64, error) {
	return ic.safety.countContacts(ctx)
}

func (ic *IContactImpl) SetPrimary(ctx context.Context, id uint) error {
	return ic.safety.setPrimary(ctx, id)
}

func (ic *IContactImpl) AddDefaultEmergencyContacts(ctx context.Context, emergencyNumber string) error {
	return ic.safety.addDefaultEmergencyContacts(ctx, emergencyNumber)
}

func (s *Safety) GetIContact() IContact {
	return &IContactImpl{safety: s}
}

package storage

import (
	"context"
	"errors"
	"time"

	"barangay/backend/internal/models"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// ComplaintsChangedChannel is the Redis channel announcing complaint writes
// to every backend instance.
const ComplaintsChangedChannel = "complaints:changed"

const snapshotTimeout = 10 * time.Second

// Service is the PostgreSQL implementation of Storage. When Redis is set,
// change announcements travel over pub/sub so dashboards attached to other
// instances see the same snapshots; without Redis they stay in-process.
type Service struct {
	DB     *gorm.DB
	Redis  *redis.Client
	Logger zerolog.Logger

	changes Broadcaster[[]models.Complaint]
}

var _ Storage = (*Service)(nil)

// NewStorageService Constructor
func NewStorageService(db *gorm.DB, rdb *redis.Client, logger zerolog.Logger) *Service {
	return &Service{
		DB:     db,
		Redis:  rdb,
		Logger: logger.With().Str("component", "storage").Logger(),
	}
}

// Migrate creates or updates every table.
func (s *Service) Migrate() error {
	return s.DB.AutoMigrate(
		&models.Complaint{},
		&models.AuditLogEntry{},
		&models.InternalNote{},
		&models.SystemLog{},
		&models.User{},
	)
}

// CreateComplaint inserts a new complaint document.
func (s *Service) CreateComplaint(ctx context.Context, c *models.Complaint) error {
	if err := s.DB.WithContext(ctx).Create(c).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicate
		}
		s.Logger.Error().Err(err).Str("complaint_id", c.ID).Msg("failed to save complaint")
		return err
	}
	s.announce(ctx, c.ID)
	return nil
}

// UpdateComplaint writes only the columns set in update.
func (s *Service) UpdateComplaint(ctx context.Context, id string, update models.ComplaintUpdate) error {
	cols := update.Columns()
	if len(cols) == 0 {
		return nil
	}

	res := s.DB.WithContext(ctx).Model(&models.Complaint{}).Where("id = ?", id).Updates(cols)
	if res.Error != nil {
		s.Logger.Error().Err(res.Error).Str("complaint_id", id).Msg("failed to update complaint")
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	s.announce(ctx, id)
	return nil
}

func (s *Service) withHistory(ctx context.Context) *gorm.DB {
	return s.DB.WithContext(ctx).
		Preload("AuditLog", func(db *gorm.DB) *gorm.DB { return db.Order("timestamp asc, id asc") }).
		Preload("InternalNotes", func(db *gorm.DB) *gorm.DB { return db.Order("timestamp asc, id asc") })
}

// GetComplaint loads one complaint with its audit log and notes.
func (s *Service) GetComplaint(ctx context.Context, id string) (*models.Complaint, error) {
	var c models.Complaint
	err := s.withHistory(ctx).Where("id = ?", id).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ListComplaints loads every complaint, newest submission first.
func (s *Service) ListComplaints(ctx context.Context) ([]models.Complaint, error) {
	var out []models.Complaint
	if err := s.withHistory(ctx).Order("submitted_at desc, id asc").Find(&out).Error; err != nil {
		s.Logger.Error().Err(err).Msg("failed to list complaints")
		return nil, err
	}
	return out, nil
}

// AppendAuditEntry inserts one audit line.
func (s *Service) AppendAuditEntry(ctx context.Context, entry *models.AuditLogEntry) error {
	if err := s.DB.WithContext(ctx).Create(entry).Error; err != nil {
		return err
	}
	s.announce(ctx, entry.ComplaintID)
	return nil
}

// AddInternalNote inserts one note.
func (s *Service) AddInternalNote(ctx context.Context, note *models.InternalNote) error {
	if err := s.DB.WithContext(ctx).Create(note).Error; err != nil {
		return err
	}
	s.announce(ctx, note.ComplaintID)
	return nil
}

// SubscribeComplaints implements ComplaintStore.
func (s *Service) SubscribeComplaints(handler func([]models.Complaint)) func() {
	return s.changes.SubscribeWithInitial(cloningHandler(handler), s.loadSnapshot)
}

func (s *Service) loadSnapshot() ([]models.Complaint, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), snapshotTimeout)
	defer cancel()

	set, err := s.ListComplaints(ctx)
	if err != nil {
		return nil, false
	}
	return set, true
}

// announce tells every instance that complaint id changed. Without Redis the
// local subscribers are refreshed directly.
func (s *Service) announce(ctx context.Context, id string) {
	if s.Redis == nil {
		s.changes.Publish(s.loadSnapshot)
		return
	}
	if err := s.Redis.Publish(ctx, ComplaintsChangedChannel, id).Err(); err != nil {
		s.Logger.Error().Err(err).Str("complaint_id", id).Msg("failed to announce complaint change, refreshing locally")
		s.changes.Publish(s.loadSnapshot)
	}
}

// RunChangeListener relays Redis change announcements to local subscribers
// until ctx is cancelled.
func (s *Service) RunChangeListener(ctx context.Context) error {
	if s.Redis == nil {
		<-ctx.Done()
		return nil
	}

	pubsub := s.Redis.Subscribe(ctx, ComplaintsChangedChannel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			s.Logger.Debug().Str("complaint_id", msg.Payload).Msg("complaint change announced")
			s.changes.Publish(s.loadSnapshot)
		}
	}
}

// AppendSystemLog inserts a write-once log record.
func (s *Service) AppendSystemLog(ctx context.Context, entry *models.SystemLog) error {
	return s.DB.WithContext(ctx).Create(entry).Error
}

// RecentSystemLogs returns up to limit records, newest first.
func (s *Service) RecentSystemLogs(ctx context.Context, limit int) ([]models.SystemLog, error) {
	var out []models.SystemLog
	q := s.DB.WithContext(ctx).Order("timestamp desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// CreateUser inserts an account after checking the username is free.
func (s *Service) CreateUser(ctx context.Context, user *models.User) error {
	var count int64
	if err := s.DB.WithContext(ctx).Model(&models.User{}).Where("username = ?", user.Username).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return ErrDuplicate
	}
	return s.DB.WithContext(ctx).Create(user).Error
}

// GetUserByID loads one account.
func (s *Service) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return s.findUser(ctx, "id = ?", id)
}

// GetUserByUsername loads the account with the given username.
func (s *Service) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.findUser(ctx, "username = ?", username)
}

func (s *Service) findUser(ctx context.Context, query string, arg string) (*models.User, error) {
	var user models.User
	err := s.DB.WithContext(ctx).Where(query, arg).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// ListUsers returns every account ordered by username.
func (s *Service) ListUsers(ctx context.Context) ([]models.User, error) {
	var out []models.User
	if err := s.DB.WithContext(ctx).Order("username asc").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateUser saves every field of user.
func (s *Service) UpdateUser(ctx context.Context, user *models.User) error {
	res := s.DB.WithContext(ctx).Model(&models.User{}).Where("id = ?", user.ID).Updates(map[string]interface{}{
		"username":      user.Username,
		"password_hash": user.PasswordHash,
		"full_name":     user.FullName,
		"role":          user.Role,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteUser removes an account.
func (s *Service) DeleteUser(ctx context.Context, id string) error {
	res := s.DB.WithContext(ctx).Where("id = ?", id).Delete(&models.User{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

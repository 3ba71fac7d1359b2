package repository

import (
	"fmt"
	"time"

	"github.com/yukikurage/timesheet-management-api/internal/database"
	"github.com/yukikurage/timesheet-management-api/internal/models"
	"github.com/yukikurage/timesheet-management-api/internal/utils"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

var userOrderColumns = map[string]string{
	"name":      "users.name",
	"email":     "users.email",
	"role":      "users.role",
	"status":    "users.status",
	"dob":       "users.dob",
	"createdAt": "users.created_at",
	"createdBy": "creator.name",
}

// GormUserRepository is a GORM implementation of UserRepository
type GormUserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &GormUserRepository{db: db}
}

// Create creates a new user
func (r *GormUserRepository) Create(user *models.User) error {
	return r.db.Create(user).Error
}

// FindByID finds a user by ID
func (r *GormUserRepository) FindByID(id uint64) (*models.User, error) {
	var user models.User
	if err := r.db.Preload("Creator", unscoped).First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByEmail finds a user by email
func (r *GormUserRepository) FindByEmail(email string) (*models.User, error) {
	var user models.User
	if err := r.db.Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByIDs returns the live users among ids
func (r *GormUserRepository) FindByIDs(ids []uint64) ([]models.User, error) {
	var users []models.User
	if len(ids) == 0 {
		return users, nil
	}
	if err := r.db.Where("id IN ?", ids).Order("id").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// List retrieves users; the page and the count run concurrently
func (r *GormUserRepository) List(params utils.ListParams) ([]models.User, int64, error) {
	base := func() *gorm.DB {
		return r.db.Model(&models.User{}).
			Joins("LEFT JOIN users AS creator ON creator.id = users.created_by").
			Scopes(database.Search(params.Search, "users.name", "users.email", "users.role", "creator.name"))
	}

	var (
		users []models.User
		total int64
		g     errgroup.Group
	)
	g.Go(func() error {
		return base().
			Scopes(database.Order(params, userOrderColumns, "users.created_at"), database.Paginate(params)).
			Preload("Creator", unscoped).
			Find(&users).Error
	})
	g.Go(func() error {
		return base().Count(&total).Error
	})
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// Update updates the given columns of a live user
func (r *GormUserRepository) Update(id uint64, updates map[string]any) (int64, error) {
	result := r.db.Model(&models.User{}).Where("id = ?", id).Updates(updates)
	return result.RowsAffected, result.Error
}

// RecordOTPFailure counts a failed OTP in a single statement so concurrent
// failures are not lost. Reaching maxAttempts clears the code, resets the
// counter and blocks reset until lockUntil.
func (r *GormUserRepository) RecordOTPFailure(id uint64, maxAttempts int, lockUntil time.Time) error {
	// otp_attempts goes last: MySQL evaluates SET assignments left to right.
	return r.db.Exec(`UPDATE users SET
		otp_locked_until = CASE WHEN otp_attempts + 1 >= @max THEN @until ELSE otp_locked_until END,
		otp_hash = CASE WHEN otp_attempts + 1 >= @max THEN NULL ELSE otp_hash END,
		otp_expires_at = CASE WHEN otp_attempts + 1 >= @max THEN NULL ELSE otp_expires_at END,
		updated_at = @now,
		otp_attempts = CASE WHEN otp_attempts + 1 >= @max THEN 0 ELSE otp_attempts + 1 END
		WHERE id = @id AND deleted_at IS NULL`,
		map[string]any{"max": maxAttempts, "until": lockUntil, "now": time.Now(), "id": id},
	).Error
}

// Delete soft deletes a user; the email is mangled so it can be registered again
func (r *GormUserRepository) Delete(id, actorID uint64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.Select("id", "email").First(&user, id).Error; err != nil {
			return err
		}

		if err := tx.Model(&user).Updates(map[string]any{
			"email":      fmt.Sprintf("%s#deleted#%d", user.Email, user.ID),
			"deleted_by": actorID,
		}).Error; err != nil {
			return err
		}

		return tx.Delete(&user).Error
	})
}

// unscoped lets display relations resolve rows that were soft deleted since.
func unscoped(db *gorm.DB) *gorm.DB {
	return db.Unscoped()
}

package services

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/yukikurage/timesheet-management-api/internal/constants"
	"github.com/yukikurage/timesheet-management-api/internal/logger"
	"github.com/yukikurage/timesheet-management-api/internal/models"
	"github.com/yukikurage/timesheet-management-api/internal/repository"
	"github.com/yukikurage/timesheet-management-api/internal/storage"
	"github.com/yukikurage/timesheet-management-api/internal/utils"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var validate = validator.New()

// UserOptions tunes password hashing and avatar size.
type UserOptions struct {
	BcryptCost   int
	AvatarWidth  int
	AvatarHeight int
	// MaxAvatarSize caps the uploaded image in bytes.
	MaxAvatarSize int64
}

// UserService handles user management and avatars.
type UserService struct {
	userRepo repository.UserRepository
	avatars  *storage.Store
	opts     UserOptions
	now      func() time.Time
}

// NewUserService creates a new UserService.
func NewUserService(userRepo repository.UserRepository, avatars *storage.Store, opts UserOptions) *UserService {
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.DefaultCost
	}
	if opts.AvatarWidth == 0 || opts.AvatarHeight == 0 {
		opts.AvatarWidth, opts.AvatarHeight = 300, 300
	}
	if opts.MaxAvatarSize == 0 {
		opts.MaxAvatarSize = 5 << 20
	}
	return &UserService{
		userRepo: userRepo,
		avatars:  avatars,
		opts:     opts,
		now:      time.Now,
	}
}

// CreateUserInput describes a new account.
type CreateUserInput struct {
	Name     string
	DOB      time.Time
	Email    string
	Password string
	Role     models.UserRole
	Status   *int
	// Avatar is optional image content (JPEG or PNG).
	Avatar io.Reader
}

// CreatedUser is the outcome of Create. ImageFailed reports that the user was
// inserted but the avatar could not be attached.
type CreatedUser struct {
	User        *models.User
	ImageFailed bool
}

// Create validates input, stores the resized avatar and inserts the user.
func (s *UserService) Create(actor Actor, input CreateUserInput) (*CreatedUser, error) {
	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}

	name := strings.TrimSpace(input.Name)
	email := normalizeEmail(input.Email)
	status := models.UserStatusActive
	if input.Status != nil {
		status = *input.Status
	}

	var problems []string
	problems = append(problems, s.validateProfile(name, input.DOB, email)...)
	problems = append(problems, utils.PasswordProblems(input.Password)...)
	if !input.Role.Valid() {
		problems = append(problems, "Role must be one of admin, manager, hr, employee")
	}
	if status != models.UserStatusActive && status != models.UserStatusInactive {
		problems = append(problems, "Status must be 0 or 1")
	}

	var avatar []byte
	if input.Avatar != nil {
		resized, problem, err := s.resizeAvatar(input.Avatar)
		if err != nil {
			return nil, err
		}
		if problem != "" {
			problems = append(problems, problem)
		}
		avatar = resized
	}
	if err := NewValidationError(problems); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.opts.BcryptCost)
	if err != nil {
		return nil, ErrFailedToHashPassword
	}

	var staged string
	if avatar != nil {
		staged, err = s.avatars.Stage(bytes.NewReader(avatar), ".jpg")
		if err != nil {
			return nil, err
		}
	}

	user := &models.User{
		Name:         name,
		DOB:          utils.DateOf(input.DOB),
		Email:        email,
		PasswordHash: string(hash),
		Role:         input.Role,
		Status:       status,
		CreatedBy:    &actor.ID,
	}
	if err := s.userRepo.Create(user); err != nil {
		s.discard(staged)
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	created := &CreatedUser{User: user}
	if staged != "" {
		if image, err := s.attachAvatar(user.ID, staged); err != nil {
			logger.Log.Errorw("Failed to attach avatar", "userId", user.ID, "error", err)
			created.ImageFailed = true
		} else {
			user.Image = &image
		}
	}

	return created, nil
}

// Get retrieves a live user by ID.
func (s *UserService) Get(id uint64) (*models.User, error) {
	user, err := s.userRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return user, nil
}

// List retrieves a page of live users.
func (s *UserService) List(params utils.ListParams) ([]models.User, int64, error) {
	users, total, err := s.userRepo.List(params)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}
	return users, total, nil
}

// UpdateUserInput holds the fields sent with an edit; nil means not sent.
type UpdateUserInput struct {
	Name   *string
	DOB    *time.Time
	Email  *string
	Role   *models.UserRole
	Status *int
}

// Update applies changed profile fields. Only admins may change role or status.
func (s *UserService) Update(actor Actor, id uint64, input UpdateUserInput) error {
	if !actor.IsAdmin() && actor.ID != id {
		return ErrForbidden
	}

	user, err := s.Get(id)
	if err != nil {
		return err
	}

	updates := map[string]any{}
	var problems []string

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if len(name) < constants.MinUserNameLength {
			problems = append(problems, fmt.Sprintf("Name must be at least %d characters long", constants.MinUserNameLength))
		} else if name != user.Name {
			updates["name"] = name
		}
	}
	if input.DOB != nil {
		dob := utils.DateOf(*input.DOB)
		if input.DOB.IsZero() {
			problems = append(problems, "Date of birth is required")
		} else if utils.AgeOn(dob, utils.Today()) < constants.MinUserAge {
			problems = append(problems, fmt.Sprintf("User must be at least %d years old", constants.MinUserAge))
		} else if !dob.Equal(utils.DateOf(user.DOB)) {
			updates["dob"] = dob
		}
	}
	if input.Email != nil {
		email := normalizeEmail(*input.Email)
		if validate.Var(email, "required,email") != nil {
			problems = append(problems, "Email must be a valid email address")
		} else if email != user.Email {
			updates["email"] = email
		}
	}
	if input.Role != nil && *input.Role != user.Role {
		if !actor.IsAdmin() {
			return ErrForbidden
		}
		if !input.Role.Valid() {
			problems = append(problems, "Role must be one of admin, manager, hr, employee")
		} else {
			updates["role"] = *input.Role
		}
	}
	if input.Status != nil && *input.Status != user.Status {
		if !actor.IsAdmin() {
			return ErrForbidden
		}
		if *input.Status != models.UserStatusActive && *input.Status != models.UserStatusInactive {
			problems = append(problems, "Status must be 0 or 1")
		} else {
			updates["status"] = *input.Status
		}
	}

	if err := NewValidationError(problems); err != nil {
		return err
	}
	if len(updates) == 0 {
		return ErrNoChanges
	}
	updates["updated_by"] = actor.ID

	n, err := s.userRepo.Update(id, updates)
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrEmailTaken
		}
		return fmt.Errorf("failed to update user: %w", err)
	}
	if n == 0 {
		return ErrUserNotFound
	}
	return nil
}

// Delete soft deletes a user and removes their avatar file.
func (s *UserService) Delete(actor Actor, id uint64) error {
	if !actor.IsAdmin() || actor.ID == id {
		return ErrForbidden
	}

	user, err := s.Get(id)
	if err != nil {
		return err
	}

	if err := s.userRepo.Delete(id, actor.ID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to delete user: %w", err)
	}

	if user.Image != nil {
		s.discard(*user.Image)
	}
	return nil
}

// AvatarPath returns the file path of a user's avatar.
func (s *UserService) AvatarPath(id uint64) (string, error) {
	user, err := s.Get(id)
	if err != nil {
		return "", err
	}
	if user.Image == nil || !s.avatars.Exists(*user.Image) {
		return "", ErrAvatarNotFound
	}
	return s.avatars.Path(*user.Image)
}

// ReplaceAvatar stores a new avatar and deletes the previous file once the column points at the new one.
func (s *UserService) ReplaceAvatar(actor Actor, id uint64, content io.Reader) (string, error) {
	if !actor.IsAdmin() && actor.ID != id {
		return "", ErrForbidden
	}

	user, err := s.Get(id)
	if err != nil {
		return "", err
	}

	resized, problem, err := s.resizeAvatar(content)
	if err != nil {
		return "", err
	}
	if problem != "" {
		return "", &ValidationError{Messages: []string{problem}}
	}

	staged, err := s.avatars.Stage(bytes.NewReader(resized), ".jpg")
	if err != nil {
		return "", err
	}

	name, err := s.attachAvatar(id, staged)
	if err != nil {
		return "", err
	}

	if user.Image != nil && *user.Image != name {
		s.discard(*user.Image)
	}
	return name, nil
}

// DeleteAvatar clears the avatar column and removes the file.
func (s *UserService) DeleteAvatar(actor Actor, id uint64) error {
	if !actor.IsAdmin() && actor.ID != id {
		return ErrForbidden
	}

	user, err := s.Get(id)
	if err != nil {
		return err
	}
	if user.Image == nil {
		return ErrAvatarNotFound
	}

	n, err := s.userRepo.Update(id, map[string]any{"image": nil, "updated_by": actor.ID})
	if err != nil {
		return fmt.Errorf("failed to clear avatar: %w", err)
	}
	if n == 0 {
		return ErrUserNotFound
	}
	s.discard(*user.Image)
	return nil
}

// ChangePasswordInput carries a self-service password change.
type ChangePasswordInput struct {
	OldPassword     string
	NewPassword     string
	ConfirmPassword string
}

// ChangePassword replaces the caller's own password after checking the old one.
func (s *UserService) ChangePassword(actor Actor, id uint64, input ChangePasswordInput) error {
	if actor.ID != id {
		return ErrForbidden
	}

	user, err := s.Get(id)
	if err != nil {
		return err
	}

	problems := utils.PasswordProblems(input.NewPassword)
	if input.NewPassword != input.ConfirmPassword {
		problems = append(problems, "New password and confirm password must match")
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.OldPassword)) != nil {
		problems = append(problems, "Old password is incorrect")
	}
	if err := NewValidationError(problems); err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.NewPassword), s.opts.BcryptCost)
	if err != nil {
		return ErrFailedToHashPassword
	}
	n, err := s.userRepo.Update(id, map[string]any{"password_hash": string(hash), "updated_by": actor.ID})
	if err != nil {
		return fmt.Errorf("failed to change password: %w", err)
	}
	if n == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (s *UserService) validateProfile(name string, dob time.Time, email string) []string {
	var problems []string
	if len(name) < constants.MinUserNameLength {
		problems = append(problems, fmt.Sprintf("Name must be at least %d characters long", constants.MinUserNameLength))
	}
	if dob.IsZero() {
		problems = append(problems, "Date of birth is required")
	} else if utils.AgeOn(utils.DateOf(dob), utils.Today()) < constants.MinUserAge {
		problems = append(problems, fmt.Sprintf("User must be at least %d years old", constants.MinUserAge))
	}
	if validate.Var(email, "required,email") != nil {
		problems = append(problems, "Email must be a valid email address")
	}
	return problems
}

// resizeAvatar reads at most MaxAvatarSize bytes and returns the resized JPEG,
// or a validation message when the upload is not an acceptable image.
func (s *UserService) resizeAvatar(content io.Reader) ([]byte, string, error) {
	raw, err := io.ReadAll(io.LimitReader(content, s.opts.MaxAvatarSize+1))
	if err != nil {
		return nil, "", fmt.Errorf("failed to read image: %w", err)
	}
	if int64(len(raw)) > s.opts.MaxAvatarSize {
		return nil, fmt.Sprintf("Image must not exceed %d MB", s.opts.MaxAvatarSize>>20), nil
	}

	resized, err := storage.ResizeAvatar(bytes.NewReader(raw), s.opts.AvatarWidth, s.opts.AvatarHeight)
	switch {
	case errors.Is(err, storage.ErrImageTooLarge):
		return nil, fmt.Sprintf("Image must not exceed %d megapixels", storage.MaxImagePixels/1_000_000), nil
	case errors.Is(err, storage.ErrInvalidImage):
		return nil, "Image must be a valid JPEG or PNG file", nil
	case err != nil:
		return nil, "", err
	}
	return resized, "", nil
}

// attachAvatar renames a staged avatar to its final name and points the image column at it.
// On failure the staged or promoted file is removed and the column left untouched.
func (s *UserService) attachAvatar(userID uint64, staged string) (string, error) {
	final := storage.FinalName("user", userID, ".jpg", s.now())
	if err := s.avatars.Promote(staged, final); err != nil {
		s.discard(staged)
		return "", err
	}

	n, err := s.userRepo.Update(userID, map[string]any{"image": final})
	if err == nil && n == 0 {
		err = ErrUserNotFound
	}
	if err != nil {
		s.discard(final)
		return "", fmt.Errorf("failed to store avatar name: %w", err)
	}
	return final, nil
}

func (s *UserService) discard(name string) {
	if name == "" {
		return
	}
	if err := s.avatars.Remove(name); err != nil {
		logger.Log.Warnw("Failed to remove upload", "file", name, "error", err)
	}
}

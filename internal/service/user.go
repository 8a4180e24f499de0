package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/msomdec/userdesk/internal/domain"
)

// CreateUserInput is the body accepted when an admin creates a user.
type CreateUserInput struct {
	Name     string `json:"name" validate:"required,max=50"`
	Email    string `json:"email" validate:"required,email"`
	Role     string `json:"role" validate:"omitempty,oneof=user publisher admin"`
	Password string `json:"password" validate:"required,min=6"`
}

// UpdateUserInput carries the fields to change; nil fields are left alone.
type UpdateUserInput struct {
	Name     *string `json:"name"`
	Email    *string `json:"email"`
	Role     *string `json:"role"`
	Password *string `json:"password"`
}

// userFields is what gets re-validated after an update is applied.
type userFields struct {
	Name  string `json:"name" validate:"required,max=50"`
	Email string `json:"email" validate:"required,email"`
	Role  string `json:"role" validate:"required,oneof=user publisher admin"`
}

var fieldMessages = map[string]string{
	"name.required":     "Please add a name",
	"name.max":          "Name can not be more than 50 characters",
	"email.required":    "Please add an email",
	"email.email":       "Please add a valid email",
	"role.required":     "Please add a role",
	"role.oneof":        "Role must be one of user, publisher, admin",
	"password.required": "Please add a password",
	"password.min":      "Password must be at least 6 characters",
}

// UserService implements the admin user operations and photo uploads.
type UserService struct {
	users      domain.UserRepository
	photos     domain.PhotoStore
	validate   *validator.Validate
	bcryptCost int
	maxUpload  int64
}

// NewUserService creates a new UserService. maxUpload is the photo size
// limit in bytes.
func NewUserService(users domain.UserRepository, photos domain.PhotoStore, bcryptCost int, maxUpload int64) *UserService {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &UserService{
		users:      users,
		photos:     photos,
		validate:   v,
		bcryptCost: bcryptCost,
		maxUpload:  maxUpload,
	}
}

// List returns one page of users matching q.
func (s *UserService) List(ctx context.Context, q domain.UserQuery) (*domain.UserPage, error) {
	page, err := s.users.List(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return page, nil
}

// Get returns the user with the given id or domain.ErrNotFound.
func (s *UserService) Get(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

// Create validates in, hashes the password and stores a new user.
func (s *UserService) Create(ctx context.Context, in CreateUserInput) (*domain.User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	if err := s.check(in); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{
		Name:         in.Name,
		Email:        in.Email,
		Role:         in.Role,
		PasswordHash: string(hash),
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// Update applies the non-nil fields of in to the user, re-validates the
// result and returns the stored state. A missing user yields domain.ErrNotFound.
func (s *UserService) Update(ctx context.Context, id string, in UpdateUserInput) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}

	if in.Name != nil {
		user.Name = strings.TrimSpace(*in.Name)
	}
	if in.Email != nil {
		user.Email = strings.TrimSpace(*in.Email)
	}
	if in.Role != nil {
		user.Role = *in.Role
	}

	if err := s.check(userFields{Name: user.Name, Email: user.Email, Role: user.Role}); err != nil {
		return nil, err
	}
	if in.Password != nil {
		if err := s.checkVar("password", *in.Password, "min=6"); err != nil {
			return nil, err
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(*in.Password), s.bcryptCost)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		user.PasswordHash = string(hash)
	}

	if err := s.users.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	return user, nil
}

// Delete removes the user. Deleting an absent user is not an error.
func (s *UserService) Delete(ctx context.Context, id string) error {
	if err := s.users.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}

// UploadPhoto stores up as the user's photo and records its name on the user.
// up is nil when the request carried no file. The checks run in a fixed order
// and the first failure wins: unknown user, no file, non-image type, size.
//
// The photo is written before the record is updated; a crash in between
// leaves the file in place with the old name on the record.
func (s *UserService) UploadPhoto(ctx context.Context, id string, up *domain.Upload) (string, error) {
	user, err := s.uploadTarget(ctx, id)
	if err != nil {
		return "", err
	}

	if up == nil {
		return "", domain.Errorf(domain.ErrInvalidInput, "Please upload a file")
	}

	// The declared type is trusted as-is.
	if !strings.HasPrefix(up.ContentType, "image") {
		return "", domain.Errorf(domain.ErrInvalidInput, "Please upload an image file")
	}

	if up.Size > s.maxUpload {
		return "", s.tooLarge()
	}

	name := PhotoName(user.ID, up.Filename)
	if err := s.photos.Save(ctx, name, up.ContentType, up.Size, up.Content); err != nil {
		slog.Error("save user photo", "user_id", user.ID, "file", name, "error", err)
		return "", domain.Errorf(domain.ErrStorage, "Problem with file upload")
	}

	if err := s.users.UpdatePhoto(ctx, user.ID, name); err != nil {
		return "", fmt.Errorf("update user photo: %w", err)
	}
	return name, nil
}

// RejectOversize is used when the request body itself was over the limit
// and no file could be read. An unknown user still takes precedence.
func (s *UserService) RejectOversize(ctx context.Context, id string) error {
	if _, err := s.uploadTarget(ctx, id); err != nil {
		return err
	}
	return s.tooLarge()
}

func (s *UserService) uploadTarget(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.Errorf(domain.ErrNotFound, "User not found with id of %s", id)
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

func (s *UserService) tooLarge() error {
	mb := strconv.FormatFloat(float64(s.maxUpload)/1_000_000, 'f', -1, 64)
	return domain.Errorf(domain.ErrInvalidInput, "Please upload an image less than %s Megabyte", mb)
}

// PhotoName is the stored name of a user's photo: photo_<id><ext>, where ext
// is the extension of the uploaded file name including the dot. A leading
// dot alone (".bashrc") is not an extension.
func PhotoName(userID, filename string) string {
	base := filepath.Base(filename)
	ext := filepath.Ext(base)
	if ext == base {
		ext = ""
	}
	return "photo_" + userID + ext
}

// EnsureAdmin creates an admin account for email unless one exists.
// It reports whether a user was created.
func (s *UserService) EnsureAdmin(ctx context.Context, name, email, password string) (bool, error) {
	_, err := s.users.GetByEmail(ctx, email)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return false, fmt.Errorf("look up admin: %w", err)
	}

	if _, err := s.Create(ctx, CreateUserInput{
		Name:     name,
		Email:    email,
		Role:     domain.RoleAdmin,
		Password: password,
	}); err != nil {
		return false, err
	}
	return true, nil
}

func (s *UserService) check(v any) error {
	err := s.validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate: %w", err)
	}
	return validationError(verrs)
}

func (s *UserService) checkVar(field string, value any, tag string) error {
	err := s.validate.Var(value, tag)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate %s: %w", field, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fieldMessage(field, fe.Tag()))
	}
	return domain.Errorf(domain.ErrInvalidInput, "%s", strings.Join(msgs, ", "))
}

func validationError(verrs validator.ValidationErrors) error {
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fieldMessage(fe.Field(), fe.Tag()))
	}
	return domain.Errorf(domain.ErrInvalidInput, "%s", strings.Join(msgs, ", "))
}

func fieldMessage(field, tag string) string {
	if msg, ok := fieldMessages[field+"."+tag]; ok {
		return msg
	}
	return fmt.Sprintf("Invalid value for %s", field)
}

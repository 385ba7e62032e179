package application

import (
	"context"
	"fmt"
	"log/slog"
	"net/mail"
	"sort"
	"strings"
	"time"

	"github.com/example/officehours/internal/logging"
	"github.com/example/officehours/internal/recurrence"
)

// UserInput captures caller provided user fields.
type UserInput struct {
	ID    string
	Name  string
	Email string
	Role  Role
}

// AuthorizeUserParams wraps the data required to add a user to the directory.
type AuthorizeUserParams struct {
	Principal Principal
	Input     UserInput
}

// UpdateUserParams wraps the data required to update a user. Nil fields are
// left unchanged.
type UpdateUserParams struct {
	Principal Principal
	UserID    string
	Name      *string
	Email     *string
	Role      *Role
}

// OutOfOfficeInput is one caller supplied out-of-office block.
type OutOfOfficeInput struct {
	Start time.Time
	End   time.Time
}

// UserService manages the user directory.
type UserService struct {
	users  UserRepository
	now    func() time.Time
	logger *slog.Logger
}

// NewUserService wires dependencies for the user service.
func NewUserService(users UserRepository, now func() time.Time) *UserService {
	return NewUserServiceWithLogger(users, now, nil)
}

// NewUserServiceWithLogger wires dependencies for the user service with a specified logger.
func NewUserServiceWithLogger(users UserRepository, now func() time.Time, logger *slog.Logger) *UserService {
	if now == nil {
		now = time.Now
	}
	return &UserService{users: users, now: now, logger: logging.Or(logger)}
}

func (s *UserService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return logging.Scoped(ctx, s.logger, "service", "UserService", operation, attrs...)
}

// CurrentUser returns the caller's own record.
func (s *UserService) CurrentUser(ctx context.Context, principal Principal) (User, error) {
	if s == nil || s.users == nil {
		return User{}, fmt.Errorf("UserService not configured")
	}
	if strings.TrimSpace(principal.UserID) == "" {
		return User{}, ErrUnauthorized
	}
	user, err := s.users.GetUser(ctx, principal.UserID)
	if err != nil {
		return User{}, mapRepoError(err)
	}
	return user, nil
}

// AuthorizeUser adds a principal to the directory. Admin only.
func (s *UserService) AuthorizeUser(ctx context.Context, params AuthorizeUserParams) (user User, err error) {
	if s == nil || s.users == nil {
		err = fmt.Errorf("UserService not configured")
		return
	}

	logger := s.loggerWith(ctx, "AuthorizeUser",
		"principal_id", params.Principal.UserID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to authorize user", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("user_id", user.ID).InfoContext(ctx, "user authorized")
	}()

	if !params.Principal.IsAdmin {
		err = ErrUnauthorized
		return
	}

	input := normalizeUserInput(params.Input)
	if vErr := validateUserInput(input); vErr.HasErrors() {
		err = vErr
		return
	}

	if _, gerr := s.users.GetUser(ctx, input.ID); gerr == nil {
		err = ErrAlreadyExists
		return
	} else if !isNotFound(gerr) {
		err = mapRepoError(gerr)
		return
	}

	now := s.now()
	user = User{
		ID:            input.ID,
		Name:          input.Name,
		Email:         input.Email,
		Role:          input.Role,
		Status:        UserStatusActive,
		Notifications: DefaultNotificationSettings(),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err = s.users.CreateUser(ctx, user); err != nil {
		err = mapRepoError(err)
	}
	return
}

// Bootstrap creates the first admin when the directory is empty. It reports
// whether a user was created.
func (s *UserService) Bootstrap(ctx context.Context, input UserInput) (created bool, err error) {
	if s == nil || s.users == nil {
		return false, fmt.Errorf("UserService not configured")
	}
	users, err := s.users.ListUsers(ctx)
	if err != nil {
		return false, mapRepoError(err)
	}
	if len(users) > 0 {
		return false, nil
	}

	input.Role = RoleAdmin
	_, err = s.AuthorizeUser(ctx, AuthorizeUserParams{
		Principal: Principal{UserID: "bootstrap", IsAdmin: true},
		Input:     input,
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

// DisableUser marks a user disabled. Disabled users cannot authenticate or host.
func (s *UserService) DisableUser(ctx context.Context, principal Principal, userID string) (User, error) {
	return s.setStatus(ctx, principal, "DisableUser", userID, UserStatusDisabled)
}

// EnableUser reactivates a disabled user.
func (s *UserService) EnableUser(ctx context.Context, principal Principal, userID string) (User, error) {
	return s.setStatus(ctx, principal, "EnableUser", userID, UserStatusActive)
}

func (s *UserService) setStatus(ctx context.Context, principal Principal, operation, userID string, status UserStatus) (user User, err error) {
	if s == nil || s.users == nil {
		err = fmt.Errorf("UserService not configured")
		return
	}

	logger := s.loggerWith(ctx, operation,
		"principal_id", principal.UserID,
		"user_id", userID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to change user status", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "user status changed", "status", string(status))
	}()

	if !principal.IsAdmin {
		err = ErrUnauthorized
		return
	}
	if user, err = s.users.GetUser(ctx, strings.TrimSpace(userID)); err != nil {
		err = mapRepoError(err)
		return
	}
	user.Status = status
	user.UpdatedAt = s.now()
	if err = s.users.PutUser(ctx, user); err != nil {
		err = mapRepoError(err)
	}
	return
}

// UpdateUser changes name, email or role of a user. Admin only.
func (s *UserService) UpdateUser(ctx context.Context, params UpdateUserParams) (user User, err error) {
	if s == nil || s.users == nil {
		err = fmt.Errorf("UserService not configured")
		return
	}

	logger := s.loggerWith(ctx, "UpdateUser",
		"principal_id", params.Principal.UserID,
		"user_id", params.UserID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update user", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "user updated")
	}()

	if !params.Principal.IsAdmin {
		err = ErrUnauthorized
		return
	}
	if user, err = s.users.GetUser(ctx, strings.TrimSpace(params.UserID)); err != nil {
		err = mapRepoError(err)
		return
	}

	input := UserInput{ID: user.ID, Name: user.Name, Email: user.Email, Role: user.Role}
	if params.Name != nil {
		input.Name = *params.Name
	}
	if params.Email != nil {
		input.Email = *params.Email
	}
	if params.Role != nil {
		input.Role = *params.Role
	}
	input = normalizeUserInput(input)
	if vErr := validateUserInput(input); vErr.HasErrors() {
		err = vErr
		return
	}

	user.Name = input.Name
	user.Email = input.Email
	user.Role = input.Role
	user.UpdatedAt = s.now()
	if err = s.users.PutUser(ctx, user); err != nil {
		err = mapRepoError(err)
	}
	return
}

// ListUsers returns the directory ordered by name then id. Admin only.
func (s *UserService) ListUsers(ctx context.Context, principal Principal) ([]User, error) {
	if s == nil || s.users == nil {
		return nil, fmt.Errorf("UserService not configured")
	}
	if !principal.IsAdmin {
		return nil, ErrUnauthorized
	}
	users, err := s.users.ListUsers(ctx)
	if err != nil {
		return nil, mapRepoError(err)
	}
	sort.SliceStable(users, func(i, j int) bool {
		if users[i].Name != users[j].Name {
			return users[i].Name < users[j].Name
		}
		return users[i].ID < users[j].ID
	})
	return users, nil
}

// SetOutOfOffice replaces the caller's out-of-office blocks.
func (s *UserService) SetOutOfOffice(ctx context.Context, principal Principal, blocks []OutOfOfficeInput) (user User, err error) {
	if s == nil || s.users == nil {
		err = fmt.Errorf("UserService not configured")
		return
	}

	logger := s.loggerWith(ctx, "SetOutOfOffice",
		"principal_id", principal.UserID,
		"block_count", len(blocks),
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to set out of office", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "out of office updated")
	}()

	vErr := &ValidationError{}
	converted := make([]OutOfOfficeBlock, 0, len(blocks))
	for i, block := range blocks {
		if !block.End.After(block.Start) {
			vErr.add(fmt.Sprintf("blocks[%d].end", i), "end must be after start")
			continue
		}
		converted = append(converted, OutOfOfficeBlock{
			Start: recurrence.FromTime(block.Start),
			End:   recurrence.FromTime(block.End),
		})
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}
	sort.SliceStable(converted, func(i, j int) bool { return converted[i].Start < converted[j].Start })

	if user, err = s.CurrentUser(ctx, principal); err != nil {
		return
	}
	user.OutOfOffice = converted
	user.UpdatedAt = s.now()
	if err = s.users.PutUser(ctx, user); err != nil {
		err = mapRepoError(err)
	}
	return
}

// UpdateNotificationSettings replaces the caller's notification settings.
func (s *UserService) UpdateNotificationSettings(ctx context.Context, principal Principal, settings NotificationSettings) (User, error) {
	if s == nil || s.users == nil {
		return User{}, fmt.Errorf("UserService not configured")
	}
	if settings.ReminderHoursBefore == 0 || settings.ReminderHoursBefore > 24*14 {
		return User{}, newValidationError("reminder_hours_before", "must be between 1 and 336")
	}
	user, err := s.CurrentUser(ctx, principal)
	if err != nil {
		return User{}, err
	}
	user.Notifications = settings
	user.UpdatedAt = s.now()
	if err := s.users.PutUser(ctx, user); err != nil {
		return User{}, mapRepoError(err)
	}
	return user, nil
}

func normalizeUserInput(input UserInput) UserInput {
	input.ID = strings.TrimSpace(input.ID)
	input.Name = strings.TrimSpace(input.Name)
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	if input.Role == "" {
		input.Role = RoleUser
	}
	return input
}

func validateUserInput(input UserInput) *ValidationError {
	vErr := &ValidationError{}
	if input.ID == "" {
		vErr.add("id", "id is required")
	}
	if input.Name == "" {
		vErr.add("name", "name is required")
	}
	if input.Email == "" {
		vErr.add("email", "email is required")
	} else if addr, err := mail.ParseAddress(input.Email); err != nil || addr.Address != input.Email {
		vErr.add("email", "email must be a valid address")
	}
	if input.Role != RoleAdmin && input.Role != RoleUser {
		vErr.add("role", "role must be admin or user")
	}
	return vErr
}

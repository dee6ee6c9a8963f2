package users

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/userdir/internal/common"
	"github.com/dmitrijs2005/userdir/internal/server/auth"
	"github.com/dmitrijs2005/userdir/internal/server/config"
	"github.com/dmitrijs2005/userdir/internal/server/refreshtokens"
)

// Field formats inherited from the original directory: logins and passwords
// are latin alphanumerics, names are latin or cyrillic letters.
var (
	loginPattern = regexp.MustCompile(`^[a-zA-Z0-9]+$`)
	namePattern  = regexp.MustCompile(`^[a-zA-Zа-яА-Я]+$`)
)

// MaxAge bounds the older-than query threshold.
const MaxAge = 150

type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// Service implements the user lifecycle and query operations on top of a
// Repository. Every method takes the resolved caller explicitly; a nil
// caller means the request is unauthenticated. A denied operation performs
// no mutation.
type Service struct {
	repo                         Repository
	refreshTokens                refreshtokens.Repository
	jwtSecret                    []byte
	accessTokenValidityDuration  time.Duration
	refreshTokenValidityDuration time.Duration

	// now is a seam for tests that need a fixed clock.
	now func() time.Time
}

func NewService(repo Repository, refreshTokens refreshtokens.Repository, cfg *config.Config) *Service {
	return &Service{
		repo:                         repo,
		refreshTokens:                refreshTokens,
		jwtSecret:                    []byte(cfg.SecretKey),
		accessTokenValidityDuration:  cfg.AccessTokenValidityDuration,
		refreshTokenValidityDuration: cfg.RefreshTokenValidityDuration,
		now:                          time.Now,
	}
}

type CreateRequest struct {
	Login    string
	Password string
	Name     string
	Gender   Gender
	Birthday *time.Time
	Admin    bool
}

type UpdateInfoRequest struct {
	TargetLogin string
	Name        string
	Gender      Gender
	Birthday    *time.Time
}

type ChangePasswordRequest struct {
	TargetLogin string
	NewPassword string
}

type ChangeLoginRequest struct {
	TargetLogin string
	NewLogin    string
}

// Login verifies credentials and issues an access/refresh token pair.
// Unknown logins, wrong passwords and revoked records all produce the same
// response so the endpoint does not leak which part failed.
func (s *Service) Login(ctx context.Context, login, password string) (*TokenPair, error) {
	if login == "" || password == "" {
		return nil, newError(KindBadRequest, "Empty request body")
	}

	user, err := s.repo.GetByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, newError(KindUnauthenticated, "Invalid login or password, or the user has been deleted.")
		}
		return nil, err
	}
	if user.Password != password || !user.Active() {
		return nil, newError(KindUnauthenticated, "Invalid login or password, or the user has been deleted.")
	}

	return s.issueTokens(ctx, user)
}

// Refresh rotates a refresh token into a fresh token pair. The old token is
// always invalidated on success.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	if refreshToken == "" {
		return nil, newError(KindBadRequest, "Refresh token is not specified.")
	}

	rt, err := s.refreshTokens.Find(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, newError(KindUnauthenticated, "Invalid or expired refresh token.")
		}
		return nil, err
	}
	if rt.Expires.Before(s.now()) {
		_ = s.refreshTokens.Delete(ctx, refreshToken)
		return nil, newError(KindUnauthenticated, "Invalid or expired refresh token.")
	}

	user, err := s.repo.GetByID(ctx, rt.UserID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, newError(KindUnauthenticated, "Invalid or expired refresh token.")
		}
		return nil, err
	}

	if err := s.refreshTokens.Delete(ctx, refreshToken); err != nil {
		return nil, err
	}
	return s.issueTokens(ctx, user)
}

func (s *Service) issueTokens(ctx context.Context, user *User) (*TokenPair, error) {
	accessToken, err := auth.GenerateToken(user.Login, user.Admin, s.jwtSecret, s.accessTokenValidityDuration)
	if err != nil {
		return nil, fmt.Errorf("error generating access token: %w", err)
	}

	refreshToken, err := common.MakeRandHexString(32)
	if err != nil {
		return nil, fmt.Errorf("error generating refresh token: %w", err)
	}

	if err := s.refreshTokens.Create(ctx, user.ID, refreshToken, s.refreshTokenValidityDuration); err != nil {
		return nil, err
	}

	return &TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

// Create adds a new active record. Per the authoritative endpoint behavior
// the duplicate-login check runs before the caller identity is required.
func (s *Service) Create(ctx context.Context, caller *Caller, req *CreateRequest) (*User, error) {
	if req == nil {
		return nil, newError(KindBadRequest, "Request body is empty. Check the request payload.")
	}
	if err := validateLogin(req.Login); err != nil {
		return nil, err
	}
	if err := validatePassword(req.Password); err != nil {
		return nil, err
	}
	if err := validateName(req.Name); err != nil {
		return nil, err
	}
	if !req.Gender.Valid() {
		return nil, newError(KindBadRequest, "Gender must be between 0 and 2.")
	}

	if _, err := s.repo.GetByLogin(ctx, req.Login); err == nil {
		return nil, newError(KindConflict, "User with login '%s' already exists.", req.Login)
	} else if !errors.Is(err, common.ErrorNotFound) {
		return nil, err
	}

	if caller == nil {
		return nil, newError(KindUnauthenticated, "Token is invalid or missing. Please authenticate again.")
	}
	if !caller.Admin {
		return nil, ErrForbidden
	}

	user := &User{
		ID:        uuid.NewString(),
		Login:     req.Login,
		Password:  req.Password,
		Name:      req.Name,
		Gender:    req.Gender,
		Birthday:  req.Birthday,
		Admin:     req.Admin,
		CreatedOn: s.now().UTC(),
		CreatedBy: caller.Login,
	}

	if err := s.repo.Add(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// UpdateInfo replaces the target's name, gender and birthday.
func (s *Service) UpdateInfo(ctx context.Context, caller *Caller, req *UpdateInfoRequest) (*User, error) {
	if req == nil {
		return nil, newError(KindBadRequest, "Request body is empty. Check the request payload.")
	}
	if err := validateName(req.Name); err != nil {
		return nil, err
	}
	if !req.Gender.Valid() {
		return nil, newError(KindBadRequest, "Gender must be between 0 and 2.")
	}

	target, err := s.mutableTarget(ctx, caller, req.TargetLogin, ActionUpdateInfo)
	if err != nil {
		return nil, err
	}

	target.Name = req.Name
	target.Gender = req.Gender
	target.Birthday = req.Birthday
	s.stampModified(target, caller)

	if err := s.repo.Update(ctx, target); err != nil {
		return nil, err
	}
	return target, nil
}

// ChangePassword replaces the target's password.
func (s *Service) ChangePassword(ctx context.Context, caller *Caller, req *ChangePasswordRequest) (*User, error) {
	if req == nil {
		return nil, newError(KindBadRequest, "Request body is empty. Check the request payload.")
	}
	if err := validatePassword(req.NewPassword); err != nil {
		return nil, err
	}

	target, err := s.mutableTarget(ctx, caller, req.TargetLogin, ActionChangePassword)
	if err != nil {
		return nil, err
	}

	target.Password = req.NewPassword
	s.stampModified(target, caller)

	if err := s.repo.Update(ctx, target); err != nil {
		return nil, err
	}
	return target, nil
}

// ChangeLogin renames the target. The new login must not belong to any
// existing record; that precondition holds for admins as well.
func (s *Service) ChangeLogin(ctx context.Context, caller *Caller, req *ChangeLoginRequest) (*User, error) {
	if req == nil {
		return nil, newError(KindBadRequest, "Request body is empty. Check the request payload.")
	}
	if strings.TrimSpace(req.NewLogin) == "" {
		return nil, newError(KindBadRequest, "New login cannot be empty.")
	}
	if err := validateLogin(req.NewLogin); err != nil {
		return nil, err
	}

	if caller == nil {
		return nil, Authorize(nil, nil, ActionChangeLogin)
	}

	target, err := s.target(ctx, req.TargetLogin)
	if err != nil {
		return nil, err
	}

	if _, err := s.repo.GetByLogin(ctx, req.NewLogin); err == nil {
		return nil, newError(KindConflict, "Login '%s' is already taken by another user.", req.NewLogin)
	} else if !errors.Is(err, common.ErrorNotFound) {
		return nil, err
	}

	if err := Authorize(caller, target, ActionChangeLogin); err != nil {
		return nil, err
	}

	target.Login = req.NewLogin
	s.stampModified(target, caller)

	if err := s.repo.Update(ctx, target); err != nil {
		return nil, err
	}
	return target, nil
}

// Delete removes a record, softly (revocation stamp) or permanently.
// Self-delete is denied for every caller, including admins.
func (s *Service) Delete(ctx context.Context, caller *Caller, login string, soft bool) error {
	if err := AuthorizeAdmin(caller); err != nil {
		return err
	}
	if strings.TrimSpace(login) == "" {
		return newError(KindBadRequest, "User login is not specified.")
	}

	target, err := s.target(ctx, login)
	if err != nil {
		return err
	}

	action := ActionHardDelete
	if soft {
		action = ActionSoftDelete
	}
	if err := Authorize(caller, target, action); err != nil {
		return err
	}

	if !soft {
		return s.repo.Remove(ctx, target.ID)
	}

	if !target.Active() {
		return newError(KindConflict, "User '%s' has already been deleted.", login)
	}

	now := s.now().UTC()
	target.RevokedOn = &now
	target.RevokedBy = caller.Login
	target.ModifiedOn = &now
	target.ModifiedBy = caller.Login

	return s.repo.Update(ctx, target)
}

// Restore reactivates a revoked record, clearing both revocation fields.
func (s *Service) Restore(ctx context.Context, caller *Caller, login string) (*User, error) {
	if err := AuthorizeAdmin(caller); err != nil {
		return nil, err
	}
	if strings.TrimSpace(login) == "" {
		return nil, newError(KindBadRequest, "User login is not specified.")
	}

	target, err := s.target(ctx, login)
	if err != nil {
		return nil, err
	}

	if target.Active() {
		return nil, newError(KindConflict, "User '%s' is already active.", login)
	}

	target.RevokedOn = nil
	target.RevokedBy = ""
	s.stampModified(target, caller)

	if err := s.repo.Update(ctx, target); err != nil {
		return nil, err
	}
	return target, nil
}

// ActiveUsers lists active records ordered by creation time, oldest first.
func (s *Service) ActiveUsers(ctx context.Context, caller *Caller) ([]*User, error) {
	if err := AuthorizeAdmin(caller); err != nil {
		return nil, err
	}

	all, err := s.repo.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	active := make([]*User, 0, len(all))
	for _, u := range all {
		if u.Active() {
			active = append(active, u)
		}
	}
	sort.SliceStable(active, func(i, j int) bool {
		return active[i].CreatedOn.Before(active[j].CreatedOn)
	})
	return active, nil
}

// ByLogin returns a single record by exact login.
func (s *Service) ByLogin(ctx context.Context, caller *Caller, login string) (*User, error) {
	if err := AuthorizeAdmin(caller); err != nil {
		return nil, err
	}
	if strings.TrimSpace(login) == "" {
		return nil, newError(KindBadRequest, "Login is not specified.")
	}
	return s.target(ctx, login)
}

// Self returns the caller's own record. A revoked caller is denied with a
// bare forbidden status.
func (s *Service) Self(ctx context.Context, caller *Caller) (*User, error) {
	if caller == nil {
		return nil, newError(KindUnauthenticated, "You are not authenticated or the token is invalid.")
	}

	user, err := s.repo.GetByLogin(ctx, caller.Login)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, newError(KindUnauthenticated, "You are not authenticated or the token is invalid.")
		}
		return nil, err
	}
	if !user.Active() {
		return nil, ErrForbidden
	}
	return user, nil
}

// OlderThan lists active records whose calendar age is strictly greater
// than the threshold. Records without a birthdate never match.
func (s *Service) OlderThan(ctx context.Context, caller *Caller, age int) ([]*User, error) {
	if err := AuthorizeAdmin(caller); err != nil {
		return nil, err
	}
	if age < 0 || age > MaxAge {
		return nil, newError(KindBadRequest, "Age must be between 0 and %d.", MaxAge)
	}

	all, err := s.repo.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	today := truncateToDate(s.now().UTC())

	var out []*User
	for _, u := range all {
		if !u.Active() || u.Birthday == nil {
			continue
		}
		if ageAt(*u.Birthday, today) > age {
			out = append(out, u)
		}
	}
	return out, nil
}

func (s *Service) stampModified(target *User, caller *Caller) {
	now := s.now().UTC()
	target.ModifiedOn = &now
	target.ModifiedBy = caller.Login
}

// target fetches the record an operation acts on, with the standard
// not-found message.
func (s *Service) target(ctx context.Context, login string) (*User, error) {
	target, err := s.repo.GetByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, newError(KindNotFound, "User with login '%s' not found.", login)
		}
		return nil, err
	}
	return target, nil
}

// mutableTarget combines the unauthenticated check, the target lookup and
// the access policy for the plain mutating operations.
func (s *Service) mutableTarget(ctx context.Context, caller *Caller, login string, action Action) (*User, error) {
	if caller == nil {
		return nil, Authorize(nil, nil, action)
	}

	target, err := s.target(ctx, login)
	if err != nil {
		return nil, err
	}

	if err := Authorize(caller, target, action); err != nil {
		return nil, err
	}
	return target, nil
}

// ageAt computes whole calendar years between birthday and today,
// decrementing when this year's anniversary has not happened yet.
func ageAt(birthday, today time.Time) int {
	b := truncateToDate(birthday.UTC())
	years := today.Year() - b.Year()
	if b.AddDate(years, 0, 0).After(today) {
		years--
	}
	return years
}

func truncateToDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func validateLogin(login string) error {
	if !loginPattern.MatchString(login) {
		return newError(KindBadRequest, "Login must contain only latin letters and digits.")
	}
	return nil
}

func validatePassword(password string) error {
	if !loginPattern.MatchString(password) {
		return newError(KindBadRequest, "Password must contain only latin letters and digits.")
	}
	return nil
}

func validateName(name string) error {
	if !namePattern.MatchString(name) {
		return newError(KindBadRequest, "Name must contain only letters.")
	}
	return nil
}

package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/mail"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"checkin-backend/models"
	"checkin-backend/realtime"
	"checkin-backend/utils"
)

// Profile is a resolved identity: who the caller is and what they may do.
type Profile struct {
	Email              string `json:"email"`
	Name               string `json:"name"`
	Role               string `json:"role"`
	MustChangePassword bool   `json:"mustChangePassword"`
	SuperAdmin         bool   `json:"superAdmin"`
}

func (p Profile) IsAdmin() bool { return p.Role == models.RoleAdmin }

// Actor is the mutation attribution for this profile.
func (p Profile) Actor() Actor { return Actor{Email: p.Email, DisplayName: p.Name} }

// Principal is the token form of the profile.
func (p Profile) Principal() Principal {
	return Principal{Email: p.Email, Name: p.Name, Role: p.Role}
}

type AddMemberInput struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

type UpdateMemberInput struct {
	Name               *string `json:"name"`
	Role               *string `json:"role"`
	MustChangePassword *bool   `json:"mustChangePassword"`
}

// TeamImportResult reports a CSV import. Existing members are skipped.
type TeamImportResult struct {
	Added   []models.TeamMember `json:"added"`
	Skipped []string            `json:"skipped"`
	Issues  []ImportIssue       `json:"issues"`
}

type TeamOptions struct {
	SuperAdminEmail string
	SMTP            utils.SMTPConfig
	FrontendURL     string
}

// TeamService manages dashboard accounts. The super admin lives outside
// the team collection and can never be changed or removed.
type TeamService struct {
	store      realtime.Store
	auth       *AuthService
	superAdmin string
	smtp       utils.SMTPConfig
	loginLink  string
	invite     func(cfg utils.SMTPConfig, email, link, name, role string) error
	log        zerolog.Logger
}

func NewTeamService(store realtime.Store, auth *AuthService, opts TeamOptions, log zerolog.Logger) *TeamService {
	return &TeamService{
		store:      store,
		auth:       auth,
		superAdmin: models.NormalizeEmail(opts.SuperAdminEmail),
		smtp:       opts.SMTP,
		loginLink:  utils.BuildLoginLink(opts.FrontendURL),
		invite:     utils.SendTeamInviteEmail,
		log:        log.With().Str("component", "team").Logger(),
	}
}

func (s *TeamService) IsSuperAdmin(email string) bool {
	return s.superAdmin != "" && models.NormalizeEmail(email) == s.superAdmin
}

// List returns members in creation order.
func (s *TeamService) List(ctx context.Context) ([]models.TeamMember, error) {
	snap, err := s.store.ReadOnce(ctx, realtime.CollectionTeam)
	if err != nil {
		return nil, WrapError(CodeSyncFailure, "read team", err)
	}
	members, err := realtime.Decode[models.TeamMember](snap)
	if err != nil {
		return nil, WrapError(CodeSyncFailure, "decode team", err)
	}
	for i := range members {
		members[i].ID = snap.Docs[i].Key
	}
	return members, nil
}

func (s *TeamService) findByEmail(ctx context.Context, email string) (models.TeamMember, bool, error) {
	members, err := s.List(ctx)
	if err != nil {
		return models.TeamMember{}, false, err
	}
	key := models.NormalizeEmail(email)
	for _, m := range members {
		if models.NormalizeEmail(m.Email) == key {
			return m, true, nil
		}
	}
	return models.TeamMember{}, false, nil
}

func (s *TeamService) findByID(ctx context.Context, id string) (models.TeamMember, error) {
	members, err := s.List(ctx)
	if err != nil {
		return models.TeamMember{}, err
	}
	for _, m := range members {
		if m.ID == id {
			return m, nil
		}
	}
	return models.TeamMember{}, notFound("team member", id)
}

// Resolve maps a signed-in email to its current role. Accounts that are
// neither the super admin nor team members are denied.
func (s *TeamService) Resolve(ctx context.Context, email string) (Profile, error) {
	if s.IsSuperAdmin(email) {
		return Profile{Email: s.superAdmin, Name: "Super Admin", Role: models.RoleAdmin, SuperAdmin: true}, nil
	}
	m, ok, err := s.findByEmail(ctx, email)
	if err != nil {
		return Profile{}, err
	}
	if !ok {
		return Profile{}, NewError(CodePermissionDenied, "account is not on the team")
	}
	return Profile{
		Email:              models.NormalizeEmail(m.Email),
		Name:               m.Name,
		Role:               models.NormalizeRole(m.Role),
		MustChangePassword: m.MustChangePassword,
	}, nil
}

// Add creates a member with the temporary password and sends an invite.
func (s *TeamService) Add(ctx context.Context, in AddMemberInput) (models.TeamMember, error) {
	email := models.NormalizeEmail(in.Email)
	if _, err := mail.ParseAddress(email); err != nil || !strings.Contains(email, "@") {
		return models.TeamMember{}, invalid("invalid email %q", in.Email)
	}
	if s.IsSuperAdmin(email) {
		return models.TeamMember{}, NewError(CodeAlreadyExists, "the super admin account already exists")
	}
	if _, ok, err := s.findByEmail(ctx, email); err != nil {
		return models.TeamMember{}, err
	} else if ok {
		return models.TeamMember{}, NewError(CodeAlreadyExists, fmt.Sprintf("%s is already on the team", email))
	}

	name := strings.TrimSpace(in.Name)
	if name == "" {
		name = strings.SplitN(email, "@", 2)[0]
	}
	m := models.TeamMember{
		ID:                 uuid.NewString(),
		Email:              email,
		Name:               name,
		Role:               models.NormalizeRole(in.Role),
		MustChangePassword: true,
	}

	if err := s.auth.CreateDefaultCredential(ctx, email); err != nil {
		return models.TeamMember{}, err
	}
	stored := m
	stored.ID = ""
	if err := s.store.Put(ctx, realtime.CollectionTeam, m.ID, stored); err != nil {
		return models.TeamMember{}, WrapError(CodeSyncFailure, "store team member", err)
	}

	if err := s.invite(s.smtp, email, s.loginLink, name, m.Role); err != nil {
		s.log.Warn().Err(err).Str("email", utils.MaskEmail(email)).Msg("invite email not sent")
	}
	s.log.Info().Str("email", email).Str("role", m.Role).Msg("team member added")
	return m, nil
}

// Update changes name, role or the must-change-password flag field by field.
func (s *TeamService) Update(ctx context.Context, id string, in UpdateMemberInput) (models.TeamMember, error) {
	m, err := s.findByID(ctx, id)
	if err != nil {
		return models.TeamMember{}, err
	}
	if s.IsSuperAdmin(m.Email) {
		return models.TeamMember{}, NewError(CodePermissionDenied, "the super admin cannot be modified")
	}

	write := func(field string, v any) error {
		if err := s.store.WriteField(ctx, realtime.CollectionTeam, id, field, v); err != nil {
			return WrapError(CodeSyncFailure, "update team member", err)
		}
		return nil
	}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return models.TeamMember{}, invalid("name must not be empty")
		}
		if err := write("name", name); err != nil {
			return models.TeamMember{}, err
		}
		m.Name = name
	}
	if in.Role != nil {
		role := strings.ToLower(strings.TrimSpace(*in.Role))
		if role != models.RoleAdmin && role != models.RoleStaff {
			return models.TeamMember{}, invalid("unknown role %q", *in.Role)
		}
		if err := write("role", role); err != nil {
			return models.TeamMember{}, err
		}
		m.Role = role
	}
	if in.MustChangePassword != nil {
		if err := write("mustChangePassword", *in.MustChangePassword); err != nil {
			return models.TeamMember{}, err
		}
		m.MustChangePassword = *in.MustChangePassword
	}
	return m, nil
}

// Remove deletes a member and its credential.
func (s *TeamService) Remove(ctx context.Context, id string) error {
	m, err := s.findByID(ctx, id)
	if err != nil {
		return err
	}
	if s.IsSuperAdmin(m.Email) {
		return NewError(CodePermissionDenied, "the super admin cannot be removed")
	}
	if err := s.store.Delete(ctx, realtime.CollectionTeam, id); err != nil {
		if errors.Is(err, realtime.ErrNoDocument) {
			return notFound("team member", id)
		}
		return WrapError(CodeSyncFailure, "remove team member", err)
	}
	if err := s.auth.DeleteCredential(ctx, m.Email); err != nil {
		s.log.Warn().Err(err).Str("email", m.Email).Msg("credential left behind")
	}
	s.log.Info().Str("email", m.Email).Msg("team member removed")
	return nil
}

// ResetPassword puts a member back on the temporary password and forces a
// change at next sign-in.
func (s *TeamService) ResetPassword(ctx context.Context, id string) (models.TeamMember, error) {
	m, err := s.findByID(ctx, id)
	if err != nil {
		return models.TeamMember{}, err
	}
	if s.IsSuperAdmin(m.Email) {
		return models.TeamMember{}, NewError(CodePermissionDenied, "the super admin cannot be reset")
	}
	if err := s.auth.ResetPassword(ctx, m.Email); err != nil {
		return models.TeamMember{}, err
	}
	flag := true
	return s.Update(ctx, id, UpdateMemberInput{MustChangePassword: &flag})
}

// PasswordChanged clears the must-change flag after a successful change.
func (s *TeamService) PasswordChanged(ctx context.Context, email string) error {
	if s.IsSuperAdmin(email) {
		return nil
	}
	m, ok, err := s.findByEmail(ctx, email)
	if err != nil || !ok || !m.MustChangePassword {
		return err
	}
	flag := false
	_, err = s.Update(ctx, m.ID, UpdateMemberInput{MustChangePassword: &flag})
	return err
}

// ImportCSV adds every valid new member from a CSV upload.
func (s *TeamService) ImportCSV(ctx context.Context, r io.Reader) (TeamImportResult, error) {
	res := TeamImportResult{Added: []models.TeamMember{}, Skipped: []string{}, Issues: []ImportIssue{}}
	rows, issues, err := ParseTeamCSV(r)
	if err != nil {
		return res, err
	}
	res.Issues = append(res.Issues, issues...)

	for _, row := range rows {
		m, err := s.Add(ctx, AddMemberInput{Email: row.Email, Name: row.Name, Role: row.Role})
		switch CodeOf(err) {
		case "":
			res.Added = append(res.Added, m)
		case CodeAlreadyExists:
			res.Skipped = append(res.Skipped, row.Email)
		default:
			res.Issues = append(res.Issues, ImportIssue{Sheet: "csv", Row: row.Line, Code: CodeOf(err), Message: err.Error()})
		}
	}
	s.log.Info().Int("added", len(res.Added)).Int("skipped", len(res.Skipped)).Int("issues", len(res.Issues)).Msg("team csv imported")
	return res, nil
}

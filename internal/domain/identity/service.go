package identity

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/mediclass/mediclass/internal/platform/auth"
	"github.com/mediclass/mediclass/internal/platform/db"
	"github.com/mediclass/mediclass/internal/platform/notification"
)

// verificationRole is the role claim carried by email verification tokens so
// they can never pass as access tokens.
const verificationRole = "email_verification"

// Service owns user registration, authentication and the doctor approval
// workflow.
type Service struct {
	repo       Repository
	issuer     *auth.TokenIssuer
	dispatcher *notification.Dispatcher
	siteURL    string
	logger     zerolog.Logger
}

func NewService(repo Repository, issuer *auth.TokenIssuer, dispatcher *notification.Dispatcher, siteURL string, logger zerolog.Logger) *Service {
	return &Service{
		repo:       repo,
		issuer:     issuer,
		dispatcher: dispatcher,
		siteURL:    strings.TrimRight(siteURL, "/"),
		logger:     logger,
	}
}

// RegisterRequest is the signup payload. Doctor signups additionally require
// specialty and license number.
type RegisterRequest struct {
	Email         string  `json:"email"`
	Password      string  `json:"password"`
	FirstName     string  `json:"first_name"`
	LastName      string  `json:"last_name"`
	Role          string  `json:"role"`
	Specialty     string  `json:"specialty,omitempty"`
	LicenseNumber string  `json:"license_number,omitempty"`
	Bio           *string `json:"bio,omitempty"`
}

func (r *RegisterRequest) validate() error {
	if r.Email == "" || !strings.Contains(r.Email, "@") {
		return fmt.Errorf("a valid email is required")
	}
	if len(r.Password) < 8 {
		return fmt.Errorf("password must be at least 8 characters")
	}
	if r.FirstName == "" || r.LastName == "" {
		return fmt.Errorf("first and last name are required")
	}
	if r.Role != auth.RoleDoctor && r.Role != auth.RolePatient {
		return fmt.Errorf("role must be doctor or patient")
	}
	if r.Role == auth.RoleDoctor {
		if r.Specialty == "" {
			return fmt.Errorf("specialty is required for doctor accounts")
		}
		if r.LicenseNumber == "" {
			return fmt.Errorf("license number is required for doctor accounts")
		}
	}
	return nil
}

// Register creates the user row and, for doctors, the dependent profile row.
// If the profile insert fails the just-created user row is deleted again,
// best-effort: a failed rollback is only logged.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*UserWithProfile, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &User{
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: string(hash),
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Role:         req.Role,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		if db.IsUniqueViolation(err) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}

	out := &UserWithProfile{User: *u}
	if req.Role == auth.RoleDoctor {
		profile := &DoctorProfile{
			UserID:         u.ID,
			Specialty:      req.Specialty,
			Bio:            req.Bio,
			LicenseNumber:  req.LicenseNumber,
			ApprovalStatus: ApprovalPending,
		}
		if err := s.repo.CreateDoctorProfile(ctx, profile); err != nil {
			if delErr := s.repo.Delete(ctx, u.ID); delErr != nil {
				s.logger.Error().Err(delErr).
					Str("user_id", u.ID.String()).
					Msg("signup rollback failed, orphan user row left behind")
			}
			return nil, fmt.Errorf("create doctor profile: %w", err)
		}
		out.Profile = profile
	}

	return out, nil
}

// Login checks the credentials and returns a signed access token plus the
// account. A missing user and a wrong password are indistinguishable to the
// caller.
func (s *Service) Login(ctx context.Context, email, password string) (string, *UserWithProfile, error) {
	u, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return "", nil, ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return "", nil, ErrInvalidCredentials
	}

	token, err := s.issuer.Issue(u.ID, u.Role)
	if err != nil {
		return "", nil, fmt.Errorf("issue token: %w", err)
	}
	return token, u, nil
}

// SendVerification emails the verification link, bounded by the hourly
// ceiling for the verification type.
func (s *Service) SendVerification(ctx context.Context, userID uuid.UUID) notification.Result {
	u, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return notification.Result{Success: false, Message: "Utilisateur introuvable"}
	}
	if u.EmailVerified {
		return notification.Result{Success: false, Message: "Adresse email déjà vérifiée"}
	}

	token, err := s.issuer.Issue(u.ID, verificationRole)
	if err != nil {
		s.logger.Error().Err(err).Msg("issue verification token")
		return notification.Result{Success: false, Message: "Une erreur est survenue, veuillez réessayer plus tard"}
	}

	link := fmt.Sprintf("%s/verify?token=%s", s.siteURL, url.QueryEscape(token))
	return s.dispatcher.Dispatch(ctx, u.ID, u.Email, notification.TypeVerification,
		"verification-email", map[string]string{
			"first_name":        u.FirstName,
			"verification_link": link,
		})
}

// VerifyEmail validates a verification token and marks the account verified.
func (s *Service) VerifyEmail(ctx context.Context, token string) error {
	claims, err := s.issuer.Parse(token)
	if err != nil {
		return fmt.Errorf("invalid token")
	}
	if claims.Role != verificationRole {
		return fmt.Errorf("invalid token")
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return fmt.Errorf("invalid token")
	}
	return s.repo.SetEmailVerified(ctx, userID)
}

// ApproveDoctor marks a doctor account approved and sends the approval mail.
func (s *Service) ApproveDoctor(ctx context.Context, doctorID uuid.UUID) (notification.Result, error) {
	u, err := s.repo.GetByID(ctx, doctorID)
	if err != nil {
		return notification.Result{}, err
	}
	if u.Role != auth.RoleDoctor || u.Profile == nil {
		return notification.Result{}, fmt.Errorf("user is not a doctor")
	}
	if err := s.repo.SetApprovalStatus(ctx, doctorID, ApprovalApproved); err != nil {
		return notification.Result{}, err
	}

	result := s.dispatcher.Dispatch(ctx, u.ID, u.Email, notification.TypeDoctorApproval,
		"doctor-approved", map[string]string{"first_name": u.FirstName})
	return result, nil
}

// RejectDoctor marks a doctor account rejected and sends the rejection mail
// with the given reason.
func (s *Service) RejectDoctor(ctx context.Context, doctorID uuid.UUID, reason string) (notification.Result, error) {
	u, err := s.repo.GetByID(ctx, doctorID)
	if err != nil {
		return notification.Result{}, err
	}
	if u.Role != auth.RoleDoctor || u.Profile == nil {
		return notification.Result{}, fmt.Errorf("user is not a doctor")
	}
	if err := s.repo.SetApprovalStatus(ctx, doctorID, ApprovalRejected); err != nil {
		return notification.Result{}, err
	}

	if reason == "" {
		reason = "dossier incomplet"
	}
	result := s.dispatcher.Dispatch(ctx, u.ID, u.Email, notification.TypeDoctorRejection,
		"doctor-rejected", map[string]string{"first_name": u.FirstName, "reason": reason})
	return result, nil
}

// Get returns one account with its doctor profile when present.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*UserWithProfile, error) {
	return s.repo.GetByID(ctx, id)
}

// UpdateProfile applies a partial profile update to the caller's account.
func (s *Service) UpdateProfile(ctx context.Context, id uuid.UUID, upd ProfileUpdate) (*UserWithProfile, error) {
	if err := s.repo.UpdateProfile(ctx, id, upd); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, id)
}

// ListDoctors lists doctor accounts, optionally filtered by approval status.
func (s *Service) ListDoctors(ctx context.Context, approvalStatus string, limit, offset int) ([]*UserWithProfile, int, error) {
	return s.repo.ListDoctors(ctx, approvalStatus, limit, offset)
}

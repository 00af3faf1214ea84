package invite

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/kojileo/datebank/internal/mailer"
	"github.com/kojileo/datebank/internal/model"
	"github.com/kojileo/datebank/internal/repository"
	"github.com/kojileo/datebank/pkg/logger"
	"github.com/kojileo/datebank/prometheus"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Result describes a completed invite.
type Result struct {
	Tenant model.Tenant
	User   model.User
	// Provisioned is true when the invitee had no account yet.
	Provisioned bool
}

// Options tune notification delivery.
type Options struct {
	BaseURL     string
	MailTimeout time.Duration
}

// Service adds users to tenants by email and notifies them.
type Service struct {
	db      *gorm.DB
	access  *repository.Access
	tenants *repository.TenantRepository
	users   *repository.UserRepository
	mailer  mailer.Mailer
	opts    Options

	inflight sync.WaitGroup
}

func NewService(db *gorm.DB, m mailer.Mailer, opts Options) *Service {
	if opts.MailTimeout <= 0 {
		opts.MailTimeout = 5 * time.Second
	}
	return &Service{
		db:      db,
		access:  repository.NewAccess(db),
		tenants: repository.NewTenantRepository(db),
		users:   repository.NewUserRepository(db),
		mailer:  m,
		opts:    opts,
	}
}

// Invite adds the owner of email to the tenant on behalf of inviter, who must
// already be a member. Unknown addresses get an unverified user record. The
// membership change is committed before the notification is dispatched, and
// a failed notification never undoes it.
func (s *Service) Invite(ctx context.Context, inviter model.User, tenantID uint, email string) (Result, error) {
	email = repository.NormalizeEmail(email)
	if email == "" {
		return Result{}, repository.NewValidationError("email", "is required")
	}

	var res Result
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// share-locks the inviter's membership until commit
		if err := s.access.WithTx(tx).Authorize(ctx, inviter.ID, repository.KindTenant, tenantID); err != nil {
			return err
		}

		invitee, created, err := s.users.WithTx(tx).Provision(ctx, email)
		if err != nil {
			return err
		}
		tenants := s.tenants.WithTx(tx)
		added, err := tenants.AddMember(ctx, tenantID, invitee.ID)
		if err != nil {
			return err
		}
		if !added {
			return repository.ErrAlreadyMember
		}

		tenant, err := tenants.Get(ctx, inviter.ID, tenantID)
		if err != nil {
			return err
		}
		res = Result{Tenant: tenant, User: invitee, Provisioned: created}
		return nil
	})
	if errors.Is(err, repository.ErrNotFound) || errors.Is(err, repository.ErrAlreadyMember) || errors.Is(err, repository.ErrValidation) {
		return Result{}, err
	}
	if err != nil {
		return Result{}, fmt.Errorf("invite: %w", err)
	}

	prometheus.UpdateUsersPerTenant(tenantID, int64(len(res.Tenant.Members)))
	s.notify(ctx, inviter, res)
	return res, nil
}

// Wait blocks until dispatched notifications have finished.
func (s *Service) Wait() {
	s.inflight.Wait()
}

func (s *Service) notify(ctx context.Context, inviter model.User, res Result) {
	log := logger.FromContext(ctx).With(
		zap.Uint("tenant_id", res.Tenant.ID),
		zap.String("invitee", res.User.Email))

	from := inviter.Name
	if from == "" {
		from = inviter.Email
	}
	subject := fmt.Sprintf("%s invited you to %s on datebank", from, res.Tenant.Name)
	body := fmt.Sprintf("%s added you to %q.\n\nSign in at %s to start planning dates together.\n",
		from, res.Tenant.Name, s.opts.BaseURL)

	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()

		// the request may already be finished; delivery gets its own deadline
		sendCtx, cancel := context.WithTimeout(context.Background(), s.opts.MailTimeout)
		defer cancel()

		if err := s.mailer.Send(sendCtx, res.User.Email, subject, body); err != nil {
			log.Warn("Invite notification failed", zap.Error(err))
			prometheus.RecordMailDispatch("failed")
			return
		}
		prometheus.RecordMailDispatch("sent")
		log.Debug("Invite notification sent")
	}()
}

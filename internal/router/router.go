package router

import (
	"net/http"
	"time"

	"medivault/internal/adapters/delivery/devlog"
	mem "medivault/internal/adapters/storage/memory"
	pg "medivault/internal/adapters/storage/postgres"
	_ "medivault/internal/docs"
	"medivault/internal/domain/accesspermissions"
	"medivault/internal/domain/deletionrequests"
	"medivault/internal/domain/documents"
	"medivault/internal/domain/otp"
	"medivault/internal/domain/profiles"
	"medivault/internal/middleware"
	"medivault/internal/platform/logger"
	"medivault/internal/ports/auth"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	httpSwagger "github.com/swaggo/http-swagger"
)

type Options struct {
	AuthVerifier auth.AuthVerifier // nil => modo dev (headers X-Debug-*)

	// Si viene, usa Postgres. Si no, in-memory.
	Pool *pgxpool.Pool

	// nil => devlog
	Sender otp.Sender
	Logger logger.Logger

	OTPTTL           time.Duration
	OTPMaxAttempts   int
	OTPAttemptWindow time.Duration
	GrantTTL         time.Duration
}

type repos struct {
	otp         otp.Repository
	profiles    profiles.Repository
	permissions accesspermissions.Repository
	documents   documents.Repository
	deletions   deletionrequests.Repository
}

func newRepos(pool *pgxpool.Pool) repos {
	if pool != nil {
		return repos{
			otp:         pg.NewOTPRepo(pool),
			profiles:    pg.NewProfilesRepo(pool),
			permissions: pg.NewPermissionsRepo(pool),
			documents:   pg.NewDocumentsRepo(pool),
			deletions:   pg.NewDeletionRequestsRepo(pool),
		}
	}
	return repos{
		otp:         mem.NewOTPRepo(),
		profiles:    mem.NewProfilesRepo(),
		permissions: mem.NewPermissionsRepo(),
		documents:   mem.NewDocumentsRepo(),
		deletions:   mem.NewDeletionRequestsRepo(),
	}
}

func NewRouter(opts Options) http.Handler {
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}
	sender := opts.Sender
	if sender == nil {
		sender = devlog.New(log)
	}

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLog(log))
	r.Use(middleware.Recover(log))

	r.Use(middleware.AuthContext(opts.AuthVerifier))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	rp := newRepos(opts.Pool)

	// Services por módulo
	otpSvc := otp.NewService(rp.otp, sender, otp.Options{
		TTL:           opts.OTPTTL,
		MaxAttempts:   opts.OTPMaxAttempts,
		AttemptWindow: opts.OTPAttemptWindow,
		Logger:        log,
	})
	profilesSvc := profiles.NewService(rp.profiles)
	permissionsSvc := accesspermissions.NewService(rp.permissions, otpSvc, profilesSvc, accesspermissions.Options{
		GrantTTL: opts.GrantTTL,
		Logger:   log,
	})
	documentsSvc := documents.NewService(rp.documents, permissionsSvc, log)
	deletionsSvc := deletionrequests.NewService(rp.deletions, otpSvc, documentsSvc, profilesSvc, log)

	// Rutas por módulo
	otp.RegisterRoutes(r, otpSvc)
	profiles.RegisterRoutes(r, profilesSvc)
	accesspermissions.RegisterRoutes(r, permissionsSvc, profilesSvc)
	documents.RegisterRoutes(r, documentsSvc)
	deletionrequests.RegisterRoutes(r, deletionsSvc)

	return r
}

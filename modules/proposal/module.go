package proposal

import (
	"meetsync-api/core/cache"
	"meetsync-api/core/config"
	"meetsync-api/core/database"
	"meetsync-api/core/middleware"
	"meetsync-api/core/queue"
	"meetsync-api/core/storage"
	availRepository "meetsync-api/modules/availability/repository"
	meetingRepository "meetsync-api/modules/meeting/repository"
	"meetsync-api/modules/proposal/controller"
	"meetsync-api/modules/proposal/repository"
	"meetsync-api/modules/proposal/router"
	"meetsync-api/modules/proposal/service"

	"github.com/labstack/echo/v4"
)

// Init wires the proposal engine and returns the service for the modules
// that mark the cache stale, plus the scheduler for worker registration.
func Init(e *echo.Echo, db database.Database, cacheClient cache.Cache, q *queue.Queue, notifier service.NotificationRecorder, mw *middleware.Middleware) (*service.ProposalService, *service.RegenerationScheduler) {
	cfg, _ := config.GetSafe()

	archive := storage.ArchiveWriter(storage.NopArchive{})
	if cfg.Archive.Enabled {
		archive = storage.NewS3Archive(storage.ArchiveConfig{
			Bucket:    cfg.Archive.Bucket,
			Region:    cfg.Archive.Region,
			AccessKey: cfg.Archive.AccessKey,
			SecretKey: cfg.Archive.SecretKey,
			Endpoint:  cfg.Archive.Endpoint,
		})
	}

	aiClient := service.NewAIClient(
		cfg.AI.BaseURL,
		cfg.AI.APIKey,
		cfg.AI.Model,
		service.DefaultRetryPolicy(),
		archive,
	)

	repo := repository.NewProposalRepository(db)
	meetingRepo := meetingRepository.NewMeetingRepository(db)
	availRepo := availRepository.NewAvailabilityRepository(db)

	svc := service.NewProposalService(repo, meetingRepo, availRepo, aiClient, cacheClient, q.Client, notifier)
	scheduler := service.NewRegenerationScheduler(svc, repo)
	ctrl := controller.NewProposalController(svc, scheduler)

	router.NewProposalRouter(ctrl).Setup(e, mw)

	return svc, scheduler
}

package interfaces

// This file contains compile-time interface implementation checks.
// These ensure that concrete types satisfy their interfaces at compile time,
// catching missing methods before runtime.
//
// To verify all checks pass: go build ./internal/interfaces/...

import (
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/mrlokans/feedimport/internal/audit"
	"github.com/mrlokans/feedimport/internal/database"
	"github.com/mrlokans/feedimport/internal/database/articles"
	"github.com/mrlokans/feedimport/internal/database/items"
	taskrepo "github.com/mrlokans/feedimport/internal/database/tasks"
	"github.com/mrlokans/feedimport/internal/entities"
	"github.com/mrlokans/feedimport/internal/http"
	"github.com/mrlokans/feedimport/internal/importers"
	"github.com/mrlokans/feedimport/internal/locks"
	"github.com/mrlokans/feedimport/internal/readers"
	"github.com/mrlokans/feedimport/internal/scheduler"
	"github.com/mrlokans/feedimport/internal/services"
	"github.com/mrlokans/feedimport/internal/tasks"
)

// =============================================================================
// Data Access Layer
// =============================================================================

var _ services.TaskStore = (*taskrepo.Repository)(nil)
var _ services.ScheduledItemStore = (*items.Repository)(nil)

var _ importers.ItemStore = (*items.Repository)(nil)
var _ importers.ObjectStore = (*articles.Store)(nil)
var _ importers.Object = (*entities.Article)(nil)
var _ importers.Flusher = (*database.UnitOfWork)(nil)

// =============================================================================
// Sources
// =============================================================================

var _ readers.Reader = (*readers.CSVReader)(nil)
var _ readers.Reader = (*readers.JSONReader)(nil)
var _ readers.Reader = (*readers.XMLReader)(nil)
var _ readers.Reader = (*readers.RSSReader)(nil)

var _ readers.Fetcher = (*readers.HTTPFetcher)(nil)
var _ readers.Fetcher = readers.FileFetcher{}
var _ readers.Fetcher = (*readers.S3Fetcher)(nil)
var _ readers.Fetcher = (*readers.MultiFetcher)(nil)
var _ readers.S3API = (*s3.Client)(nil)

// =============================================================================
// Run Coordination
// =============================================================================

var _ locks.Locker = (*locks.DatabaseLocker)(nil)
var _ locks.Locker = (*locks.RedisLocker)(nil)

var _ services.ImporterProvider = (*services.ImporterFactory)(nil)
var _ services.TaskListener = (*audit.Service)(nil)
var _ services.Dispatcher = (*tasks.Dispatcher)(nil)

// =============================================================================
// Background Work
// =============================================================================

var _ tasks.TaskImporter = (*services.TaskRunner)(nil)
var _ tasks.ScheduledItemsRunner = (*services.ItemImporter)(nil)
var _ tasks.ScheduledItemsReporter = (*audit.Service)(nil)
var _ tasks.AuditEventCleaner = (*audit.Service)(nil)

var _ scheduler.TaskDispatcher = (*services.TaskRunner)(nil)
var _ scheduler.Enqueuer = (*tasks.Client)(nil)

var _ http.SchedulerStatus = (*scheduler.ImportScheduler)(nil)
var _ http.QueueStatus = (*tasks.Client)(nil)

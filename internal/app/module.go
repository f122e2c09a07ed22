package app

import (
	"time"

	"go.uber.org/fx"

	"github.com/fatflowers/gymdesk/internal/app/api/server"
	"github.com/fatflowers/gymdesk/internal/app/service/activity"
	"github.com/fatflowers/gymdesk/internal/app/service/admin"
	"github.com/fatflowers/gymdesk/internal/app/service/inventory"
	"github.com/fatflowers/gymdesk/internal/app/service/live"
	"github.com/fatflowers/gymdesk/internal/app/service/membership"
	"github.com/fatflowers/gymdesk/internal/app/service/statistics"
	"github.com/fatflowers/gymdesk/internal/platform/changefeed"
	"github.com/fatflowers/gymdesk/internal/platform/db"
	"github.com/fatflowers/gymdesk/internal/platform/events"
	"github.com/fatflowers/gymdesk/internal/platform/identity"
	"github.com/fatflowers/gymdesk/pkg/config"
	"github.com/fatflowers/gymdesk/pkg/logger"
)

const (
	DefaultStartTimeout = 15 * time.Second
	DefaultStopTimeout  = 15 * time.Second
)

var Module = fx.Options(
	logger.Module,
	config.Module,
	changefeed.Module,
	events.Module,
	db.Module,
	identity.Module,
	server.Module,
	membership.Module,
	inventory.Module,
	admin.Module,
	statistics.Module,
	live.Module,
	activity.Module,
)

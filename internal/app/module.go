package app

import (
	"time"

	"go.uber.org/fx"

	"github.com/snapspend/backend/internal/app/api/server"
	"github.com/snapspend/backend/internal/app/service/extraction"
	"github.com/snapspend/backend/internal/app/service/insights"
	"github.com/snapspend/backend/internal/app/service/payment"
	"github.com/snapspend/backend/internal/app/service/receipt"
	"github.com/snapspend/backend/internal/app/service/subscription"
	"github.com/snapspend/backend/internal/platform/db"
	"github.com/snapspend/backend/internal/platform/storage"
	"github.com/snapspend/backend/pkg/config"
	"github.com/snapspend/backend/pkg/logger"
)

const (
	DefaultStartTimeout = 15 * time.Second
	DefaultStopTimeout  = 10 * time.Second
)

var Module = fx.Options(
	logger.Module,
	config.Module,
	db.Module,
	storage.Module,
	server.Module,
	extraction.Module,
	insights.Module,
	subscription.Module,
	payment.Module,
	receipt.Module,
)

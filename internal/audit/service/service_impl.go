package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/innkeephq/innkeep/internal/audit/domain"
	"github.com/innkeephq/innkeep/internal/clock"
	"github.com/innkeephq/innkeep/internal/requestctx"
	"github.com/innkeephq/innkeep/pkg/db/pagination"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  domain.Repository
}

func NewService(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("audit.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) Record(ctx context.Context, entry domain.Entry) error {
	action := strings.TrimSpace(entry.Action)
	if action == "" {
		return domain.ErrInvalidAction
	}

	resourceType := strings.TrimSpace(entry.ResourceType)
	if resourceType == "" {
		resourceType = "unknown"
	}

	actor := strings.TrimSpace(entry.Actor)
	if actor == "" {
		actor = requestctx.ActorFromContext(ctx)
	}
	if actor == "" {
		actor = "system"
	}

	row := domain.AuditLog{
		ID:           s.genID.Generate(),
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   strings.TrimSpace(entry.ResourceID),
		Actor:        actor,
		Before:       datatypes.JSONMap(entry.Before),
		After:        datatypes.JSONMap(entry.After),
		CreatedAt:    s.clock.Now(),
	}
	if ip := requestctx.IPAddressFromContext(ctx); ip != "" {
		row.IPAddress = &ip
	}
	if ua := requestctx.UserAgentFromContext(ctx); ua != "" {
		row.UserAgent = &ua
	}

	if err := s.repo.Insert(ctx, s.db, &row); err != nil {
		s.log.Warn("failed to write audit log", zap.String("action", action), zap.Error(err))
		return err
	}
	return nil
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) (domain.ListResponse, error) {
	if req.StartAt != nil && req.EndAt != nil && req.StartAt.After(*req.EndAt) {
		return domain.ListResponse{}, domain.ErrInvalidTimeRange
	}

	var cursor *pagination.Cursor
	if strings.TrimSpace(req.PageToken) != "" {
		decoded, err := pagination.DecodeCursor(req.PageToken)
		if err != nil {
			return domain.ListResponse{}, domain.ErrInvalidPageToken
		}
		cursor = decoded
	}

	limit := req.PageSize
	if limit <= 0 {
		limit = 10
	}

	items, err := s.repo.List(ctx, s.db, req, cursor, limit)
	if err != nil {
		return domain.ListResponse{}, err
	}

	pageInfo, items := pagination.BuildCursorPageInfo(items, limit, func(row domain.AuditLog) string {
		token, _ := pagination.EncodeCursor(pagination.Cursor{ID: row.ID.String()})
		return token
	})

	return domain.ListResponse{
		PageInfo:  *pageInfo,
		AuditLogs: items,
	}, nil
}

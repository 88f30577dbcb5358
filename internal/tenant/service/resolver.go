package service

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/innkeephq/innkeep/internal/kvstore"
	"github.com/innkeephq/innkeep/internal/tenant/domain"
)

// uuidShape matches the canonical hyphenated textual form only. Relational
// primary keys are always written in this form, so anything else skips the
// primary-key probe entirely.
var uuidShape = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

// Resolve walks the lookup chain in strict order, short-circuiting on the
// first hit:
//
//  1. fast-store point lookup, identifier used as the key
//  2. relational lookup by primary key when the identifier has UUID shape
//  3. relational lookup by external code inside the JSON settings column
//
// Relational hits are translated into the normalized fast-store shape before
// returning, so callers cannot tell which backend answered. Backend failures
// along the chain degrade to "no match from this source" rather than
// aborting the resolution.
func (s *Service) Resolve(ctx context.Context, identifier string) (*domain.Record, domain.Source, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, domain.SourceNone, domain.ErrNotFound
	}

	if record := s.fastLookup(ctx, identifier); record != nil {
		s.metrics.RecordResolution(domain.SourceFast.String())
		return record, domain.SourceFast, nil
	}

	if uuidShape.MatchString(identifier) {
		id, err := uuid.Parse(identifier)
		if err == nil {
			row, err := s.repo.FindByID(ctx, s.db, id)
			if err != nil {
				s.log.Warn("relational lookup by id failed",
					zap.String("identifier", identifier), zap.Error(err))
			} else if row != nil {
				record := row.ToRecord()
				s.metrics.RecordResolution(domain.SourceRelational.String())
				return &record, domain.SourceRelational, nil
			}
		}
	}

	row, err := s.repo.FindByExternalCode(ctx, s.db, identifier)
	if err != nil {
		s.log.Warn("relational lookup by external code failed",
			zap.String("identifier", identifier), zap.Error(err))
	} else if row != nil {
		record := row.ToRecord()
		s.metrics.RecordResolution(domain.SourceRelational.String())
		return &record, domain.SourceRelational, nil
	}

	// No negative caching: every miss repeats the full chain.
	s.metrics.RecordResolution(domain.SourceNone.String())
	return nil, domain.SourceNone, domain.ErrNotFound
}

// fastLookup probes the fast store. The identifier is tried as a direct key
// first; bare external codes are also tried under the tenant keyspace, which
// is the hot path for authenticated tenant sessions.
func (s *Service) fastLookup(ctx context.Context, identifier string) *domain.Record {
	keys := []string{identifier}
	if !strings.Contains(identifier, ":") {
		keys = append(keys, kvstore.TenantKey(identifier))
	}

	for _, key := range keys {
		raw, err := s.kv.Get(ctx, key)
		if errors.Is(err, kvstore.ErrKeyNotFound) {
			continue
		}
		if err != nil {
			s.log.Warn("fast store lookup failed", zap.String("key", key), zap.Error(err))
			continue
		}

		var record domain.Record
		if err := json.Unmarshal(raw, &record); err != nil {
			s.log.Warn("fast store record corrupt", zap.String("key", key), zap.Error(err))
			continue
		}
		return &record
	}
	return nil
}

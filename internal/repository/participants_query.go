package repository

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/campus-admin-api/internal/models"
	"github.com/noah-isme/campus-admin-api/internal/store"
)

const participantsKeyPrefix = "participants:course:"

// participantsCache is the read-through cache in front of the participants procedure.
type participantsCache interface {
	Enabled() bool
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Invalidate(ctx context.Context, pattern string) error
}

// ParticipantsQuery lists the students enrolled in a course through the remote procedure.
type ParticipantsQuery struct {
	store        store.Store
	cache        participantsCache
	ttl          time.Duration
	logger       *zap.Logger
	participants collection[models.Student]
}

// NewParticipantsQuery constructs the query. cache may be nil.
func NewParticipantsQuery(st store.Store, cache participantsCache, ttl time.Duration, logger *zap.Logger) *ParticipantsQuery {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ParticipantsQuery{store: st, cache: cache, ttl: ttl, logger: logger}
}

// FetchParticipants returns the course's students and keeps them as the last result.
func (q *ParticipantsQuery) FetchParticipants(ctx context.Context, courseID int64) ([]models.Student, error) {
	seq := q.participants.begin()
	key := participantsKey(courseID)

	if q.cacheEnabled() {
		var cached []models.Student
		if hit, err := q.cache.Get(ctx, key, &cached); err == nil && hit {
			q.participants.finish(seq, cached, nil)
			return cached, nil
		}
	}

	var students []models.Student
	params := map[string]interface{}{"p_course_id": courseID}
	if err := q.store.Call(ctx, store.ProcEnrollmentsByCourse, params, &students); err != nil {
		err = remoteError(err)
		q.participants.finish(seq, nil, err)
		q.logger.Warn("fetch participants failed", zap.Int64("course_id", courseID), zap.Error(err))
		return nil, err
	}
	if students == nil {
		students = []models.Student{}
	}
	q.participants.finish(seq, students, nil)

	if q.cacheEnabled() {
		_ = q.cache.Set(ctx, key, students, q.ttl)
	}
	return students, nil
}

// Invalidate drops the cached participants of a course, or of every course when courseID is zero.
func (q *ParticipantsQuery) Invalidate(ctx context.Context, courseID int64) {
	if !q.cacheEnabled() {
		return
	}
	pattern := participantsKeyPrefix + "*"
	if courseID != 0 {
		pattern = participantsKey(courseID)
	}
	_ = q.cache.Invalidate(ctx, pattern)
}

// State reports the last result with its loading and error flags.
func (q *ParticipantsQuery) State() State[models.Student] {
	return q.participants.state()
}

func (q *ParticipantsQuery) cacheEnabled() bool {
	return q.cache != nil && q.cache.Enabled()
}

func participantsKey(courseID int64) string {
	return fmt.Sprintf("%s%d", participantsKeyPrefix, courseID)
}
